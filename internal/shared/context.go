package shared

import (
	"context"
	"time"
)

// Principal is the authenticated caller attached to a request. Token holds the
// presented bearer token so logout can revoke exactly that token.
type Principal struct {
	UserID    int64
	RoleID    int64
	RoleName  string
	Token     string `json:"-"`
	ExpiresAt time.Time
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey{}).(*Principal)
	return p
}

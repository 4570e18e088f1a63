package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/platform/httpx"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/shared"
)

// RequestAuthenticator resolves a bearer token to a principal.
type RequestAuthenticator interface {
	AuthenticateRequest(ctx context.Context, bearer string) (*shared.Principal, error)
}

// Middleware attaches the authenticated principal to the request context.
type Middleware struct {
	Authenticator RequestAuthenticator
	Logger        *slog.Logger
}

// RequireAuth rejects requests without a valid, unrevoked bearer token.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bearer, ok := ParseBearer(r.Header.Get("Authorization"))
		if !ok {
			httpx.RespondError(w, shared.ErrUnauthorized)
			return
		}
		principal, err := m.Authenticator.AuthenticateRequest(r.Context(), bearer)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Debug("authenticate request", slog.String("path", r.URL.Path), slog.Any("error", err))
			}
			httpx.RespondError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(r.Context(), principal)))
	})
}

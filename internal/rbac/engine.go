package rbac

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrGrantNotFound means no grant row exists for the (role, resource) pair,
// including when the resource tag itself is unknown.
var ErrGrantNotFound = errors.New("rbac: grant not found")

// DefaultLookupTimeout bounds a grant lookup when the engine is built without one.
const DefaultLookupTimeout = 500 * time.Millisecond

// Resolver fetches the grant for a role on a protected resource.
type Resolver interface {
	FindGrant(ctx context.Context, roleID int64, resource string) (Grant, error)
}

// Request is the authorization input declared by a route.
type Request struct {
	Method   string
	Resource string
	Scope    Scope
}

// Engine composes a Resolver with Evaluate. Any lookup failure denies.
type Engine struct {
	resolver Resolver
	timeout  time.Duration
	logger   *slog.Logger
}

// NewEngine constructs an Engine. A non-positive timeout uses DefaultLookupTimeout.
func NewEngine(resolver Resolver, timeout time.Duration, logger *slog.Logger) *Engine {
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{resolver: resolver, timeout: timeout, logger: logger}
}

// Decide resolves roleID's grant for req.Resource and evaluates req against it.
func (e *Engine) Decide(ctx context.Context, roleID int64, req Request) Decision {
	if _, _, ok := MethodPermissions(req.Method); !ok {
		return deny(ReasonUnmappedMethod)
	}
	if e == nil || e.resolver == nil {
		return deny(ReasonLookupFailed)
	}

	lookupCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	grant, err := e.resolver.FindGrant(lookupCtx, roleID, req.Resource)
	if err != nil {
		if errors.Is(err, ErrGrantNotFound) {
			return deny(ReasonNoGrant)
		}
		e.logger.Warn("rbac grant lookup failed",
			slog.Int64("role_id", roleID),
			slog.String("resource", req.Resource),
			slog.Any("error", err),
		)
		return deny(ReasonLookupFailed)
	}
	if grant.RoleID != roleID || grant.Resource != req.Resource {
		return deny(ReasonNoGrant)
	}
	return Evaluate(req.Method, req.Scope, grant)
}

package rbac

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/platform/httpx"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/shared"
)

// Authorizer produces a decision for a role and a declared request.
type Authorizer interface {
	Decide(ctx context.Context, roleID int64, req Request) Decision
}

// DecisionObserver receives every decision made by Middleware.
type DecisionObserver interface {
	ObserveDecision(resource, outcome, reason string)
}

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Authorizer Authorizer
	Logger     *slog.Logger
	Observer   DecisionObserver
}

// Require guards a route with the given resource tag and scope. The request
// method selects the permission pair. It expects an authenticated principal
// in the request context.
func (m Middleware) Require(resource string, scope Scope) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := shared.PrincipalFromContext(r.Context())
			if principal == nil {
				m.observe(resource, deny(ReasonNoPrincipal))
				httpx.RespondError(w, shared.ErrUnauthorized)
				return
			}
			var decision Decision
			if m.Authorizer == nil {
				decision = deny(ReasonLookupFailed)
			} else {
				decision = m.Authorizer.Decide(r.Context(), principal.RoleID, Request{
					Method:   r.Method,
					Resource: resource,
					Scope:    scope,
				})
			}
			m.observe(resource, decision)
			if !decision.Allowed {
				if m.Logger != nil {
					m.Logger.Info("rbac deny",
						slog.Int64("user_id", principal.UserID),
						slog.String("resource", resource),
						slog.String("method", r.Method),
						slog.String("scope", scope.String()),
						slog.String("reason", string(decision.Reason)),
					)
				}
				httpx.RespondError(w, shared.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) observe(resource string, d Decision) {
	if m.Observer != nil {
		m.Observer.ObserveDecision(resource, d.Outcome(), string(d.Reason))
	}
}

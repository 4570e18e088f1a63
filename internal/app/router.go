package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/auth"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/observability"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/products"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/rbac"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/roles"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/users"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	AuthHandler        *auth.Handler
	AuthMiddleware     auth.Middleware
	RBACMiddleware     rbac.Middleware
	UsersHandler       *users.Handler
	ProductsHandler    *products.Handler
	AccessRulesHandler *rbac.Handler
	RolesHandler       *roles.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
	AccessLog          bool
}

// NewRouter constructs the chi.Router with service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}
	if params.AccessLog {
		r.Use(chimw.Logger)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	if params.AuthHandler != nil {
		r.Route("/auth", params.AuthHandler.MountRoutes)
	}
	if params.RolesHandler != nil {
		r.Route("/roles", params.RolesHandler.MountRoutes)
	}

	r.Group(func(r chi.Router) {
		r.Use(params.AuthMiddleware.RequireAuth)
		if params.UsersHandler != nil {
			r.Route("/profile", params.UsersHandler.MountRoutes)
		}
		if params.ProductsHandler != nil {
			r.Route("/products", params.ProductsHandler.MountRoutes)
		}
		if params.AccessRulesHandler != nil {
			r.Route("/access-rules", params.AccessRulesHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", func(r chi.Router) {
				r.Use(params.RBACMiddleware.Require(rbac.ResourceAccessRules, rbac.ScopeAll))
				params.JobHandler.MountRoutes(r)
			})
		}
	})

	return r
}

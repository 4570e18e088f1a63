package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/platform/httpx"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/shared"
)

// TokenResponse is returned by sign-up and login.
type TokenResponse struct {
	Token string `json:"token"`
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	authn     Middleware
	limiter   func(http.Handler) http.Handler
	validator *validator.Validate
}

// NewHandler constructs a Handler instance. limiter guards sign-up and login
// and may be nil.
func NewHandler(logger *slog.Logger, service *Service, authn Middleware, limiter func(http.Handler) http.Handler) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		authn:     authn,
		limiter:   limiter,
		validator: httpx.NewValidator(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.limiter != nil {
			r.Use(h.limiter)
		}
		r.Post("/sign-up", h.handleSignUp)
		r.Post("/login", h.handleLogin)
	})
	r.With(h.authn.RequireAuth).Post("/logout", h.handleLogout)
}

func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var in SignUpInput
	if err := httpx.DecodeAndValidate(w, r, h.validator, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	raw, err := h.service.SignUp(r.Context(), in)
	if err != nil {
		h.logger.Info("sign-up rejected", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, TokenResponse{Token: raw})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in LoginInput
	if err := httpx.DecodeAndValidate(w, r, h.validator, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	raw, err := h.service.Login(r.Context(), in)
	if err != nil {
		h.logger.Info("login rejected", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, TokenResponse{Token: raw})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if err := h.service.Logout(r.Context(), principal); err != nil {
		h.logger.Error("logout", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

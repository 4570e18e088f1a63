package rbac

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/platform/httpx"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/shared"
)

// Handler exposes the access rules administration API.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac, validator: httpx.NewValidator()}
}

// MountRoutes registers access rule routes. The caller is expected to have
// installed authentication.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.Require(ResourceAccessRules, ScopeOwn)).Get("/my", h.listMine)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(ResourceAccessRules, ScopeAll))
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Patch("/{id}", h.patch)
	})
}

func (h *Handler) listMine(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	rules, err := h.service.RulesForRole(r.Context(), principal.RoleID)
	if err != nil {
		h.fail(w, "list own access rules", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rules)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	rules, err := h.service.Rules(r.Context())
	if err != nil {
		h.fail(w, "list access rules", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rules)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in CreateRuleInput
	if err := httpx.DecodeAndValidate(w, r, h.validator, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	rule, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.fail(w, "create access rule", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rule)
}

func (h *Handler) patch(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, shared.NewValidationError("id must be a positive integer"))
		return
	}
	var in PatchRuleInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	rule, err := h.service.Patch(r.Context(), id, in)
	if err != nil {
		h.fail(w, "patch access rule", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rule)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Warn(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}

package products

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/platform/httpx"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/rbac"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/shared"
)

// Handler exposes the catalogue over HTTP.
type Handler struct {
	logger    *slog.Logger
	catalogue *Catalogue
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, catalogue *Catalogue, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, catalogue: catalogue, rbac: rbac, validator: httpx.NewValidator()}
}

// MountRoutes registers product routes. Authentication must already be installed.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.Require(rbac.ResourceProducts, rbac.ScopeAll)).Get("/", h.list)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ResourceProducts, rbac.ScopeOwn))
		r.Get("/my", h.listMine)
		r.Post("/my", h.create)
		r.Patch("/my/{id}", h.update)
		r.Delete("/my/{id}", h.delete)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.catalogue.List(r.Context()))
}

func (h *Handler) listMine(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	httpx.JSON(w, http.StatusOK, h.catalogue.ListOwned(r.Context(), principal.UserID))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	var in Input
	if err := httpx.DecodeAndValidate(w, r, h.validator, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, h.catalogue.Create(r.Context(), principal.UserID, in))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	id, ok := productID(w, r)
	if !ok {
		return
	}
	var patch Patch
	if err := httpx.DecodeAndValidate(w, r, h.validator, &patch); err != nil {
		httpx.RespondError(w, err)
		return
	}
	product, err := h.catalogue.UpdateOwned(r.Context(), principal.UserID, id, patch)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	id, ok := productID(w, r)
	if !ok {
		return
	}
	if err := h.catalogue.DeleteOwned(r.Context(), principal.UserID, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, shared.NewValidationError("id must be a positive integer"))
		return 0, false
	}
	return id, true
}

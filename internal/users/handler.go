package users

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/platform/httpx"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/rbac"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/shared"
)

// SessionRevoker ends the session a principal authenticated with.
type SessionRevoker interface {
	Logout(ctx context.Context, principal *shared.Principal) error
}

// AuditSink receives account events.
type AuditSink interface {
	EnqueueAudit(ctx context.Context, entry shared.AuditLog) error
}

// Handler manages the profile endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	sessions  SessionRevoker
	audit     AuditSink
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware, sessions SessionRevoker, audit AuditSink) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		rbac:      rbac,
		sessions:  sessions,
		audit:     audit,
		validator: httpx.NewValidator(),
	}
}

// MountRoutes registers profile routes. Authentication must already be installed.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ResourceProfiles, rbac.ScopeOwn))
		r.Get("/my", h.getMyProfile)
		r.Patch("/my", h.updateMyProfile)
		r.Delete("/my", h.deleteMyProfile)
	})
	r.With(h.rbac.Require(rbac.ResourceProfiles, rbac.ScopeAll)).Get("/", h.listProfiles)
}

func (h *Handler) getMyProfile(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	user, err := h.service.Profile(r.Context(), principal.UserID)
	if err != nil {
		h.fail(w, "get profile", err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) updateMyProfile(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	var patch ProfilePatch
	if err := httpx.DecodeAndValidate(w, r, h.validator, &patch); err != nil {
		httpx.RespondError(w, err)
		return
	}
	user, err := h.service.UpdateProfile(r.Context(), principal.UserID, patch)
	if err != nil {
		h.fail(w, "update profile", err)
		return
	}
	meta := map[string]any{"password_changed": patch.Password != nil && *patch.Password != ""}
	h.record(r.Context(), principal.UserID, "profile_update", meta)
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) deleteMyProfile(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	user, err := h.service.Deactivate(r.Context(), principal.UserID)
	if err != nil {
		h.fail(w, "deactivate profile", err)
		return
	}
	if h.sessions != nil {
		if err := h.sessions.Logout(r.Context(), principal); err != nil {
			h.fail(w, "revoke session after deactivate", err)
			return
		}
	}
	h.record(r.Context(), principal.UserID, "deactivate", nil)
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) listProfiles(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	list, pagination, err := h.service.List(r.Context(), page, perPage)
	if err != nil {
		h.fail(w, "list profiles", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": list, "pagination": pagination})
}

func (h *Handler) record(ctx context.Context, userID int64, action string, meta map[string]any) {
	if h.audit == nil {
		return
	}
	entry := shared.AuditLog{
		ActorID:  userID,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(userID, 10),
		Meta:     meta,
	}
	if err := h.audit.EnqueueAudit(ctx, entry); err != nil {
		h.logger.Warn("enqueue audit", slog.String("action", action), slog.Any("error", err))
	}
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Warn(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}

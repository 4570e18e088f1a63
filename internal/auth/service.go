package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/credential"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/revocation"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/shared"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/token"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/users"
)

// Audit actions recorded by the account flows.
const (
	ActionSignUp = "sign_up"
	ActionLogin  = "login"
	ActionLogout = "logout"
)

// SignUpInput is the body accepted by POST /auth/sign-up.
type SignUpInput struct {
	Firstname  string  `json:"firstname" validate:"required,max=50"`
	Surname    string  `json:"surname" validate:"required,max=50"`
	MiddleName *string `json:"middle_name" validate:"omitnil,max=50"`
	Email      string  `json:"email" validate:"required,email,max=50"`
	Password   string  `json:"password" validate:"required"`
	RoleID     int64   `json:"role_id" validate:"required,gt=0"`
}

// LoginInput is the body accepted by POST /auth/login.
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ServiceConfig collects the collaborators of a Service.
type ServiceConfig struct {
	Users         UserStore
	Roles         RoleFinder
	Hasher        *credential.Hasher
	Tokens        *token.Service
	Revocations   revocation.Store
	Audit         AuditSink
	LookupTimeout time.Duration
	Logger        *slog.Logger
	Clock         func() time.Time
}

// Service wraps the account flows.
type Service struct {
	users   UserStore
	roles   RoleFinder
	hasher  *credential.Hasher
	tokens  *token.Service
	revoked revocation.Store
	audit   AuditSink
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewService constructs a new Service.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		users:   cfg.Users,
		roles:   cfg.Roles,
		hasher:  cfg.Hasher,
		tokens:  cfg.Tokens,
		revoked: cfg.Revocations,
		audit:   cfg.Audit,
		timeout: cfg.LookupTimeout,
		logger:  cfg.Logger,
		now:     cfg.Clock,
	}
	if s.timeout <= 0 {
		s.timeout = 500 * time.Millisecond
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// SignUp creates an account and returns a session token for it. The ADMIN
// role can never be chosen here.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (string, error) {
	if err := credential.ValidatePassword(in.Password); err != nil {
		return "", err
	}
	role, err := s.roles.FindRoleByID(ctx, in.RoleID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return "", shared.NewValidationError("role_id does not exist")
		}
		return "", fmt.Errorf("auth: sign-up role: %w", err)
	}
	if !role.SelfAssignable() {
		return "", shared.NewValidationError("admin role cannot be chosen at sign-up")
	}

	email := users.NormalizeEmail(in.Email)
	if _, err := s.users.FindUserByEmail(ctx, email); err == nil {
		return "", fmt.Errorf("user with such login already exists: %w", shared.ErrConflict)
	} else if !errors.Is(err, shared.ErrNotFound) {
		return "", fmt.Errorf("auth: sign-up lookup: %w", err)
	}

	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		return "", err
	}
	user, err := s.users.CreateUser(ctx, users.CreateInput{
		Firstname:    strings.TrimSpace(in.Firstname),
		Surname:      strings.TrimSpace(in.Surname),
		MiddleName:   in.MiddleName,
		Email:        email,
		PasswordHash: hashed,
		RoleID:       role.ID,
	})
	if err != nil {
		return "", err
	}

	raw, _, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", err
	}
	s.record(ctx, user.ID, ActionSignUp, map[string]any{"role": role.Name})
	return raw, nil
}

// Login checks credentials and returns a fresh session token. Unknown emails
// and wrong passwords produce the same error and comparable work.
func (s *Service) Login(ctx context.Context, in LoginInput) (string, error) {
	user, err := s.users.FindUserByEmail(ctx, users.NormalizeEmail(in.Email))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.hasher.Burn(in.Password)
			return "", shared.ErrInvalidCredentials
		}
		return "", fmt.Errorf("auth: login lookup: %w", err)
	}
	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		return "", shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return "", shared.ErrInactiveUser
	}

	raw, _, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", err
	}
	s.record(ctx, user.ID, ActionLogin, nil)
	return raw, nil
}

// Logout revokes the principal's token for the rest of its lifetime. Tokens
// that have already expired are not stored.
func (s *Service) Logout(ctx context.Context, principal *shared.Principal) error {
	if principal == nil || principal.Token == "" {
		return shared.ErrUnauthorized
	}
	remaining := principal.ExpiresAt.Sub(s.now())
	if remaining > 0 {
		revokeCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		if err := s.revoked.Revoke(revokeCtx, principal.Token, remaining); err != nil {
			return fmt.Errorf("auth: logout: %w", err)
		}
	}
	s.record(ctx, principal.UserID, ActionLogout, nil)
	return nil
}

func (s *Service) record(ctx context.Context, userID int64, action string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	entry := shared.AuditLog{
		ActorID:  userID,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(userID, 10),
		Meta:     meta,
		At:       s.now().UTC(),
	}
	if err := s.audit.EnqueueAudit(ctx, entry); err != nil {
		s.logger.Warn("enqueue audit", slog.String("action", action), slog.Any("error", err))
	}
}

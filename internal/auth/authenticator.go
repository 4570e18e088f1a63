package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/rbac"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/revocation"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/shared"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/token"
)

// Failure reasons reported to the FailureObserver and the logs.
const (
	FailureMissingToken          = "missing_token"
	FailureExpired               = "expired"
	FailureInvalid               = "invalid"
	FailureRevoked               = "revoked"
	FailureRevocationUnavailable = "revocation_unavailable"
	FailureUnknownSubject        = "unknown_subject"
	FailureInactive              = "inactive"
	FailureNoRole                = "no_role"
)

// AuthenticatorConfig collects the collaborators of an Authenticator.
type AuthenticatorConfig struct {
	Tokens        *token.Service
	Revocations   revocation.Store
	Users         UserFinder
	Roles         RoleFinder
	Authorizer    rbac.Authorizer
	LookupTimeout time.Duration
	Logger        *slog.Logger
	Observer      FailureObserver
}

// Authenticator turns a bearer token into a Principal and authorizes
// principals against the permission matrix.
type Authenticator struct {
	tokens   *token.Service
	revoked  revocation.Store
	users    UserFinder
	roles    RoleFinder
	authz    rbac.Authorizer
	timeout  time.Duration
	logger   *slog.Logger
	observer FailureObserver
}

// NewAuthenticator constructs an Authenticator.
func NewAuthenticator(cfg AuthenticatorConfig) *Authenticator {
	timeout := cfg.LookupTimeout
	if timeout <= 0 {
		timeout = rbac.DefaultLookupTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{
		tokens:   cfg.Tokens,
		revoked:  cfg.Revocations,
		users:    cfg.Users,
		roles:    cfg.Roles,
		authz:    cfg.Authorizer,
		timeout:  timeout,
		logger:   logger,
		observer: cfg.Observer,
	}
}

// ParseBearer extracts the token from an Authorization header value.
func ParseBearer(header string) (string, bool) {
	scheme, raw, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

// AuthenticateRequest verifies bearer, checks it against the revocation store
// and resolves the subject's account and role. Every token problem returns an
// error matching shared.ErrUnauthorized. A subject without a role returns
// shared.ErrForbidden.
func (a *Authenticator) AuthenticateRequest(ctx context.Context, bearer string) (*shared.Principal, error) {
	if bearer == "" {
		return nil, a.reject(FailureMissingToken, shared.ErrUnauthorized)
	}

	claims, err := a.tokens.Verify(bearer)
	if err != nil {
		var tokErr *token.Error
		if errors.As(err, &tokErr) && tokErr.Kind == token.KindExpired {
			return nil, a.reject(FailureExpired, err)
		}
		return nil, a.reject(FailureInvalid, err)
	}

	revoked, err := a.isRevoked(ctx, bearer)
	if err != nil {
		a.logger.Warn("revocation lookup failed", slog.Any("error", err))
		return nil, a.reject(FailureRevocationUnavailable, shared.ErrUnauthorized)
	}
	if revoked {
		return nil, a.reject(FailureRevoked, shared.ErrUnauthorized)
	}

	user, err := a.users.FindUserByID(ctx, claims.SubjectID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, a.reject(FailureUnknownSubject, shared.ErrUnauthorized)
		}
		return nil, fmt.Errorf("auth: load subject: %w", err)
	}
	if !user.IsActive {
		return nil, a.reject(FailureInactive, shared.ErrUnauthorized)
	}
	if user.RoleID() == 0 {
		return nil, a.reject(FailureNoRole, shared.ErrForbidden)
	}

	role, err := a.roles.FindRoleByID(ctx, user.RoleID())
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, a.reject(FailureNoRole, shared.ErrForbidden)
		}
		return nil, fmt.Errorf("auth: load role: %w", err)
	}

	return &shared.Principal{
		UserID:    user.ID,
		RoleID:    role.ID,
		RoleName:  role.Name,
		Token:     bearer,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

// AuthorizeRequest returns nil when principal may perform method on resource
// in scope, and an error matching shared.ErrForbidden otherwise.
func (a *Authenticator) AuthorizeRequest(ctx context.Context, principal *shared.Principal, method, resource string, scope rbac.Scope) error {
	if principal == nil {
		return shared.ErrUnauthorized
	}
	if a.authz == nil {
		return shared.ErrForbidden
	}
	decision := a.authz.Decide(ctx, principal.RoleID, rbac.Request{Method: method, Resource: resource, Scope: scope})
	if !decision.Allowed {
		return fmt.Errorf("%s: %w", decision.Reason, shared.ErrForbidden)
	}
	return nil
}

func (a *Authenticator) isRevoked(ctx context.Context, bearer string) (bool, error) {
	if a.revoked == nil {
		return false, errors.New("auth: revocation store not configured")
	}
	lookupCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.revoked.IsRevoked(lookupCtx, bearer)
}

func (a *Authenticator) reject(reason string, err error) error {
	a.logger.Debug("authentication rejected", slog.String("reason", reason))
	if a.observer != nil {
		a.observer.ObserveAuthFailure(reason)
	}
	return err
}

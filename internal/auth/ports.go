// Package auth authenticates bearer tokens and runs the account flows
// (sign-up, login, logout).
package auth

import (
	"context"

	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/roles"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/shared"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/users"
)

// UserFinder reads accounts. Missing accounts yield shared.ErrNotFound.
type UserFinder interface {
	FindUserByID(ctx context.Context, id int64) (users.User, error)
	FindUserByEmail(ctx context.Context, email string) (users.User, error)
}

// UserStore adds account creation to UserFinder.
type UserStore interface {
	UserFinder
	CreateUser(ctx context.Context, in users.CreateInput) (users.User, error)
}

// RoleFinder reads roles. Missing roles yield shared.ErrNotFound.
type RoleFinder interface {
	FindRoleByID(ctx context.Context, id int64) (roles.Role, error)
}

// AuditSink receives account events. Delivery is best effort.
type AuditSink interface {
	EnqueueAudit(ctx context.Context, entry shared.AuditLog) error
}

// FailureObserver counts authentication failures by reason.
type FailureObserver interface {
	ObserveAuthFailure(reason string)
}

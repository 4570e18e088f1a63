package users

import (
	"context"
	"strings"

	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/credential"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	FindUserByID(ctx context.Context, id int64) (User, error)
	UpdateUser(ctx context.Context, id int64, changes Changes) (User, error)
	Deactivate(ctx context.Context, id int64) (User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]User, int, error)
}

// PasswordHasher hashes new passwords.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
}

// Service handles profile business logic.
type Service struct {
	repo   RepositoryPort
	hasher PasswordHasher
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, hasher PasswordHasher) *Service {
	return &Service{repo: repo, hasher: hasher}
}

// Profile returns the account of userID.
func (s *Service) Profile(ctx context.Context, userID int64) (User, error) {
	return s.repo.FindUserByID(ctx, userID)
}

// UpdateProfile applies patch to userID. A new password must satisfy the
// password policy and is stored hashed.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, patch ProfilePatch) (User, error) {
	changes := Changes{
		Firstname:  trimmed(patch.Firstname),
		Surname:    trimmed(patch.Surname),
		MiddleName: trimmed(patch.MiddleName),
		Email:      trimmed(patch.Email),
	}
	if patch.Password != nil && *patch.Password != "" {
		if err := credential.ValidatePassword(*patch.Password); err != nil {
			return User{}, err
		}
		hashed, err := s.hasher.Hash(*patch.Password)
		if err != nil {
			return User{}, err
		}
		changes.PasswordHash = &hashed
	}
	if changes.Firstname != nil && *changes.Firstname == "" {
		return User{}, shared.NewValidationError("firstname must not be empty")
	}
	if changes.Surname != nil && *changes.Surname == "" {
		return User{}, shared.NewValidationError("surname must not be empty")
	}
	return s.repo.UpdateUser(ctx, userID, changes)
}

// Deactivate soft deletes userID.
func (s *Service) Deactivate(ctx context.Context, userID int64) (User, error) {
	return s.repo.Deactivate(ctx, userID)
}

// List returns one page of accounts.
func (s *Service) List(ctx context.Context, page, perPage int) ([]User, shared.Pagination, error) {
	p := shared.NewPagination(page, perPage, 0)
	list, total, err := s.repo.ListUsers(ctx, p.PerPage, p.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, shared.NewPagination(p.Page, p.PerPage, total), nil
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}

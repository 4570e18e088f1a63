package roles

import "context"

// Store is the persistence used by Service.
type Store interface {
	ListRoles(ctx context.Context) ([]Role, error)
	FindRoleByID(ctx context.Context, id int64) (Role, error)
}

// Service exposes read access to roles.
type Service struct {
	store Store
}

// NewService constructs a Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// ListRoles returns every role.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.store.ListRoles(ctx)
}

// FindRoleByID fetches a single role.
func (s *Service) FindRoleByID(ctx context.Context, id int64) (Role, error) {
	return s.store.FindRoleByID(ctx, id)
}

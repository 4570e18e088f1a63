package rbac

import (
	"context"

	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/shared"
)

// RuleStore is the persistence used by Service.
type RuleStore interface {
	ListRules(ctx context.Context) ([]AccessRule, error)
	ListRulesByRole(ctx context.Context, roleID int64) ([]AccessRule, error)
	CreateRule(ctx context.Context, in CreateRuleInput) (AccessRule, error)
	PatchRule(ctx context.Context, id int64, in PatchRuleInput) (AccessRule, error)
}

// Service administers access rules.
type Service struct {
	store RuleStore
}

// NewService constructs a Service.
func NewService(store RuleStore) *Service {
	return &Service{store: store}
}

// RulesForRole lists the rules attached to roleID.
func (s *Service) RulesForRole(ctx context.Context, roleID int64) ([]AccessRule, error) {
	return s.store.ListRulesByRole(ctx, roleID)
}

// Rules lists every rule.
func (s *Service) Rules(ctx context.Context) ([]AccessRule, error) {
	return s.store.ListRules(ctx)
}

// Create adds a rule for a (role, business object) pair.
func (s *Service) Create(ctx context.Context, in CreateRuleInput) (AccessRule, error) {
	if in.RoleID <= 0 || in.BusinessObjectID <= 0 {
		return AccessRule{}, shared.NewValidationError("role_id and business_object_id are required")
	}
	return s.store.CreateRule(ctx, in)
}

// Patch updates the flags present in in.
func (s *Service) Patch(ctx context.Context, id int64, in PatchRuleInput) (AccessRule, error) {
	if id <= 0 {
		return AccessRule{}, shared.NewValidationError("id must be positive")
	}
	return s.store.PatchRule(ctx, id, in)
}

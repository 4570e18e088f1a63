package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/platform/db"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/shared"
)

const ruleSelect = `SELECT ar.id, ar.create_permission, ar.read_permission, ar.read_all_permission,
	ar.update_permission, ar.update_all_permission, ar.delete_permission, ar.delete_all_permission,
	r.id, r.name, bo.id, bo.name, ar.updated_at
FROM access_rules ar
JOIN roles r ON r.id = ar.role_id
JOIN business_objects bo ON bo.id = ar.business_object_id`

// Repository persists access rules in PostgreSQL and resolves grants for the
// decision engine.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FindGrant implements Resolver with an exact match on role and resource name.
func (r *Repository) FindGrant(ctx context.Context, roleID int64, resource string) (Grant, error) {
	row := r.pool.QueryRow(ctx, ruleSelect+` WHERE ar.role_id = $1 AND bo.name = $2`, roleID, resource)
	rule, err := scanRule(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Grant{}, ErrGrantNotFound
		}
		return Grant{}, fmt.Errorf("rbac: find grant: %w", err)
	}
	return rule.Grant(), nil
}

// ListRules returns every access rule ordered by id.
func (r *Repository) ListRules(ctx context.Context) ([]AccessRule, error) {
	return r.queryRules(ctx, ruleSelect+` ORDER BY ar.id`)
}

// ListRulesByRole returns the access rules of a single role.
func (r *Repository) ListRulesByRole(ctx context.Context, roleID int64) ([]AccessRule, error) {
	return r.queryRules(ctx, ruleSelect+` WHERE ar.role_id = $1 ORDER BY ar.id`, roleID)
}

// GetRule fetches one rule by id.
func (r *Repository) GetRule(ctx context.Context, id int64) (AccessRule, error) {
	rule, err := scanRule(r.pool.QueryRow(ctx, ruleSelect+` WHERE ar.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AccessRule{}, fmt.Errorf("access rule %d: %w", id, shared.ErrNotFound)
		}
		return AccessRule{}, fmt.Errorf("rbac: get rule: %w", err)
	}
	return rule, nil
}

// CreateRule inserts a rule. A second rule for the same (role, business object)
// pair is rejected with shared.ErrConflict.
func (r *Repository) CreateRule(ctx context.Context, in CreateRuleInput) (AccessRule, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO access_rules (
		role_id, business_object_id, create_permission, read_permission, read_all_permission,
		update_permission, update_all_permission, delete_permission, delete_all_permission
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		in.RoleID, in.BusinessObjectID, in.Create, in.Read, in.ReadAll,
		in.Update, in.UpdateAll, in.Delete, in.DeleteAll,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return AccessRule{}, fmt.Errorf("access rule with role_id = %d and business_object_id = %d already exists: %w",
					in.RoleID, in.BusinessObjectID, shared.ErrConflict)
			case "23503":
				return AccessRule{}, shared.NewValidationError("role_id or business_object_id does not exist")
			}
		}
		return AccessRule{}, fmt.Errorf("rbac: create rule: %w", err)
	}
	return r.GetRule(ctx, id)
}

// PatchRule applies in to rule id inside a transaction.
func (r *Repository) PatchRule(ctx context.Context, id int64, in PatchRuleInput) (AccessRule, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var flags Flags
		err := tx.QueryRow(ctx, `SELECT create_permission, read_permission, read_all_permission,
			update_permission, update_all_permission, delete_permission, delete_all_permission
		FROM access_rules WHERE id = $1 FOR UPDATE`, id).Scan(
			&flags.Create, &flags.Read, &flags.ReadAll,
			&flags.Update, &flags.UpdateAll, &flags.Delete, &flags.DeleteAll,
		)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("no access rule with id = %d: %w", id, shared.ErrNotFound)
			}
			return err
		}
		flags = in.Apply(flags)
		_, err = tx.Exec(ctx, `UPDATE access_rules SET
			create_permission = $2, read_permission = $3, read_all_permission = $4,
			update_permission = $5, update_all_permission = $6, delete_permission = $7,
			delete_all_permission = $8, updated_at = NOW()
		WHERE id = $1`,
			id, flags.Create, flags.Read, flags.ReadAll,
			flags.Update, flags.UpdateAll, flags.Delete, flags.DeleteAll,
		)
		return err
	})
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return AccessRule{}, err
		}
		return AccessRule{}, fmt.Errorf("rbac: patch rule: %w", err)
	}
	return r.GetRule(ctx, id)
}

func (r *Repository) queryRules(ctx context.Context, query string, args ...any) ([]AccessRule, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("rbac: list rules: %w", err)
	}
	defer rows.Close()
	rules := make([]AccessRule, 0)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("rbac: scan rule: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rbac: list rules: %w", err)
	}
	return rules, nil
}

func scanRule(row pgx.Row) (AccessRule, error) {
	var rule AccessRule
	err := row.Scan(
		&rule.ID, &rule.Create, &rule.Read, &rule.ReadAll,
		&rule.Update, &rule.UpdateAll, &rule.Delete, &rule.DeleteAll,
		&rule.Role.ID, &rule.Role.Name, &rule.BusinessObject.ID, &rule.BusinessObject.Name,
		&rule.UpdatedAt,
	)
	return rule, err
}

var _ Resolver = (*Repository)(nil)

package users

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/roles"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/shared"
)

const userSelect = `SELECT u.id, u.firstname, u.surname, u.middle_name, u.email, u.hashed_password,
	u.is_active, r.id, r.name
FROM users u
LEFT JOIN roles r ON r.id = u.role_id`

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FindUserByID fetches a user by id.
func (r *Repository) FindUserByID(ctx context.Context, id int64) (User, error) {
	return r.findOne(ctx, userSelect+` WHERE u.id = $1`, id)
}

// FindUserByEmail fetches a user by normalised email.
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (User, error) {
	return r.findOne(ctx, userSelect+` WHERE u.email = $1`, NormalizeEmail(email))
}

// CreateUser inserts an active account. A taken email yields shared.ErrConflict.
func (r *Repository) CreateUser(ctx context.Context, in CreateInput) (User, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO users (firstname, surname, middle_name, email, hashed_password, is_active, role_id)
		VALUES ($1, $2, $3, $4, $5, TRUE, $6) RETURNING id`,
		in.Firstname, in.Surname, in.MiddleName, NormalizeEmail(in.Email), in.PasswordHash, in.RoleID,
	).Scan(&id)
	if err != nil {
		return User{}, mapWriteError("create user", err)
	}
	return r.FindUserByID(ctx, id)
}

// UpdateUser applies changes to user id and returns the stored result.
func (r *Repository) UpdateUser(ctx context.Context, id int64, changes Changes) (User, error) {
	if changes.Empty() {
		return r.FindUserByID(ctx, id)
	}
	sets := make([]string, 0, 5)
	args := []any{id}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}
	if changes.Firstname != nil {
		add("firstname", *changes.Firstname)
	}
	if changes.Surname != nil {
		add("surname", *changes.Surname)
	}
	if changes.MiddleName != nil {
		add("middle_name", *changes.MiddleName)
	}
	if changes.Email != nil {
		add("email", NormalizeEmail(*changes.Email))
	}
	if changes.PasswordHash != nil {
		add("hashed_password", *changes.PasswordHash)
	}
	tag, err := r.pool.Exec(ctx, `UPDATE users SET `+strings.Join(sets, ", ")+`, updated_at = NOW() WHERE id = $1`, args...)
	if err != nil {
		return User{}, mapWriteError("update user", err)
	}
	if tag.RowsAffected() == 0 {
		return User{}, fmt.Errorf("user %d: %w", id, shared.ErrNotFound)
	}
	return r.FindUserByID(ctx, id)
}

// Deactivate marks the account inactive. The row is kept.
func (r *Repository) Deactivate(ctx context.Context, id int64) (User, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return User{}, fmt.Errorf("users: deactivate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return User{}, fmt.Errorf("user %d: %w", id, shared.ErrNotFound)
	}
	return r.FindUserByID(ctx, id)
}

// ListUsers returns one page of users ordered by id and the total count.
func (r *Repository) ListUsers(ctx context.Context, limit, offset int) ([]User, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("users: count: %w", err)
	}
	rows, err := r.pool.Query(ctx, userSelect+` ORDER BY u.id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("users: list: %w", err)
	}
	defer rows.Close()
	list := make([]User, 0, limit)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("users: scan: %w", err)
		}
		list = append(list, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("users: list: %w", err)
	}
	return list, total, nil
}

func (r *Repository) findOne(ctx context.Context, query string, arg any) (User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, fmt.Errorf("user: %w", shared.ErrNotFound)
		}
		return User{}, fmt.Errorf("users: find: %w", err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (User, error) {
	var (
		user     User
		roleID   *int64
		roleName *string
	)
	err := row.Scan(&user.ID, &user.Firstname, &user.Surname, &user.MiddleName, &user.Email,
		&user.PasswordHash, &user.IsActive, &roleID, &roleName)
	if err != nil {
		return User{}, err
	}
	if roleID != nil && roleName != nil {
		user.Role = &roles.Role{ID: *roleID, Name: *roleName}
	}
	return user, nil
}

func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("user with such login already exists: %w", shared.ErrConflict)
		case "23503":
			return shared.NewValidationError("role_id does not exist")
		}
	}
	return fmt.Errorf("users: %s: %w", op, err)
}

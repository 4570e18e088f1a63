package users

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/roles"
)

// User is an account as stored and as returned by the profile API.
type User struct {
	ID           int64       `json:"id"`
	Firstname    string      `json:"firstname"`
	Surname      string      `json:"surname"`
	MiddleName   *string     `json:"middle_name"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"-"`
	IsActive     bool        `json:"is_active"`
	Role         *roles.Role `json:"role"`
}

// RoleID returns the id of the assigned role, or zero when none is assigned.
func (u User) RoleID() int64 {
	if u.Role == nil {
		return 0
	}
	return u.Role.ID
}

// CreateInput holds a new account. PasswordHash must already be hashed.
type CreateInput struct {
	Firstname    string
	Surname      string
	MiddleName   *string
	Email        string
	PasswordHash string
	RoleID       int64
}

// ProfilePatch is the body accepted by PATCH /profile/my. Absent fields are
// left unchanged.
type ProfilePatch struct {
	Firstname  *string `json:"firstname" validate:"omitnil,min=1,max=50"`
	Surname    *string `json:"surname" validate:"omitnil,min=1,max=50"`
	MiddleName *string `json:"middle_name" validate:"omitnil,max=50"`
	Email      *string `json:"email" validate:"omitnil,email,max=50"`
	Password   *string `json:"password"`
}

// Changes is a resolved ProfilePatch ready for storage.
type Changes struct {
	Firstname    *string
	Surname      *string
	MiddleName   *string
	Email        *string
	PasswordHash *string
}

// Empty reports whether nothing would change.
func (c Changes) Empty() bool {
	return c.Firstname == nil && c.Surname == nil && c.MiddleName == nil && c.Email == nil && c.PasswordHash == nil
}

// NormalizeEmail trims and case-folds an address so lookups are
// case-insensitive. A Caser is not safe for concurrent use, so each call
// builds its own.
func NormalizeEmail(email string) string {
	return cases.Fold().String(strings.TrimSpace(email))
}

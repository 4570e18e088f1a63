package roles

import "strings"

// Role names seeded by default. The set is open; these are the ones the
// account flows treat specially.
const (
	NameUser      = "USER"
	NameSuperuser = "SUPERUSER"
	NameAdmin     = "ADMIN"
)

// Role groups users that share a row of the permission matrix.
type Role struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// IsAdmin reports whether the role is the administrator role.
func (r Role) IsAdmin() bool {
	return strings.EqualFold(r.Name, NameAdmin)
}

// SelfAssignable reports whether a user may pick this role at sign-up.
func (r Role) SelfAssignable() bool {
	return r.ID > 0 && !r.IsAdmin()
}

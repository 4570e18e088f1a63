package rbac

import "time"

// Permission is one of the seven independent grant flags.
type Permission int

// Grant flags. PermNone is never granted.
const (
	PermNone Permission = iota
	PermCreate
	PermRead
	PermReadAll
	PermUpdate
	PermUpdateAll
	PermDelete
	PermDeleteAll
)

var permissionNames = map[Permission]string{
	PermNone:      "none",
	PermCreate:    "create",
	PermRead:      "read",
	PermReadAll:   "read_all",
	PermUpdate:    "update",
	PermUpdateAll: "update_all",
	PermDelete:    "delete",
	PermDeleteAll: "delete_all",
}

func (p Permission) String() string {
	if name, ok := permissionNames[p]; ok {
		return name
	}
	return "unknown"
}

// Scope declares whether a route acts on the caller's own records or on every
// record of the resource type.
type Scope int

const (
	// ScopeAll targets any record regardless of owner.
	ScopeAll Scope = iota
	// ScopeOwn targets only records owned by the caller.
	ScopeOwn
)

func (s Scope) String() string {
	if s == ScopeOwn {
		return "own"
	}
	return "all"
}

// Protected resource tags. Each maps to a business_objects row.
const (
	ResourceAccessRules = "access_rules"
	ResourceProfiles    = "profiles"
	ResourceProducts    = "products"
	ResourceOrders      = "orders"
)

// Grant is the permission row for one (role, resource) pair.
type Grant struct {
	ID        int64
	RoleID    int64
	Resource  string
	Create    bool
	Read      bool
	ReadAll   bool
	Update    bool
	UpdateAll bool
	Delete    bool
	DeleteAll bool
}

// Has reports whether the flag for p is set.
func (g Grant) Has(p Permission) bool {
	switch p {
	case PermCreate:
		return g.Create
	case PermRead:
		return g.Read
	case PermReadAll:
		return g.ReadAll
	case PermUpdate:
		return g.Update
	case PermUpdateAll:
		return g.UpdateAll
	case PermDelete:
		return g.Delete
	case PermDeleteAll:
		return g.DeleteAll
	default:
		return false
	}
}

// Flags is the JSON form of the seven grant flags.
type Flags struct {
	Create    bool `json:"create_permission"`
	Read      bool `json:"read_permission"`
	ReadAll   bool `json:"read_all_permission"`
	Update    bool `json:"update_permission"`
	UpdateAll bool `json:"update_all_permission"`
	Delete    bool `json:"delete_permission"`
	DeleteAll bool `json:"delete_all_permission"`
}

// RoleRef identifies a role inside an access rule.
type RoleRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// BusinessObject is a protected resource row.
type BusinessObject struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// AccessRule is a grant row as exposed by the administration API.
type AccessRule struct {
	ID int64 `json:"id"`
	Flags
	Role           RoleRef        `json:"role"`
	BusinessObject BusinessObject `json:"business_object"`
	UpdatedAt      time.Time      `json:"-"`
}

// Grant converts the rule to the form consumed by the decision engine.
func (r AccessRule) Grant() Grant {
	return Grant{
		ID:        r.ID,
		RoleID:    r.Role.ID,
		Resource:  r.BusinessObject.Name,
		Create:    r.Create,
		Read:      r.Read,
		ReadAll:   r.ReadAll,
		Update:    r.Update,
		UpdateAll: r.UpdateAll,
		Delete:    r.Delete,
		DeleteAll: r.DeleteAll,
	}
}

// CreateRuleInput holds a new access rule.
type CreateRuleInput struct {
	Flags
	RoleID           int64 `json:"role_id" validate:"required,gt=0"`
	BusinessObjectID int64 `json:"business_object_id" validate:"required,gt=0"`
}

// PatchRuleInput updates only the flags that are present.
type PatchRuleInput struct {
	Create    *bool `json:"create_permission"`
	Read      *bool `json:"read_permission"`
	ReadAll   *bool `json:"read_all_permission"`
	Update    *bool `json:"update_permission"`
	UpdateAll *bool `json:"update_all_permission"`
	Delete    *bool `json:"delete_permission"`
	DeleteAll *bool `json:"delete_all_permission"`
}

// Empty reports whether the patch changes nothing.
func (p PatchRuleInput) Empty() bool {
	return p.Create == nil && p.Read == nil && p.ReadAll == nil && p.Update == nil &&
		p.UpdateAll == nil && p.Delete == nil && p.DeleteAll == nil
}

// Apply returns f with the present patch fields applied.
func (p PatchRuleInput) Apply(f Flags) Flags {
	set := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	set(&f.Create, p.Create)
	set(&f.Read, p.Read)
	set(&f.ReadAll, p.ReadAll)
	set(&f.Update, p.Update)
	set(&f.UpdateAll, p.UpdateAll)
	set(&f.Delete, p.Delete)
	set(&f.DeleteAll, p.DeleteAll)
	return f
}

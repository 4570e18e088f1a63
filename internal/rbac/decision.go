package rbac

import "net/http"

// Reason explains a Decision. Allow reasons and deny reasons never overlap.
type Reason string

const (
	ReasonAllGrant          Reason = "all_grant"
	ReasonOwnGrant          Reason = "own_grant"
	ReasonUnmappedMethod    Reason = "unmapped_method"
	ReasonNoGrant           Reason = "no_grant"
	ReasonScopeMismatch     Reason = "scope_mismatch"
	ReasonMissingPermission Reason = "missing_permission"
	ReasonLookupFailed      Reason = "lookup_failed"
	ReasonNoPrincipal       Reason = "no_principal"
)

// Decision is the verdict for a single request.
type Decision struct {
	Allowed bool
	Reason  Reason
}

// Outcome returns "allow" or "deny".
func (d Decision) Outcome() string {
	if d.Allowed {
		return "allow"
	}
	return "deny"
}

func allow(reason Reason) Decision { return Decision{Allowed: true, Reason: reason} }
func deny(reason Reason) Decision { return Decision{Reason: reason} }

type methodPermissions struct {
	own Permission
	all Permission
}

// POST has no separate create-all flag, so both slots use PermCreate.
var methodTable = map[string]methodPermissions{
	http.MethodPost:   {own: PermCreate, all: PermCreate},
	http.MethodGet:    {own: PermRead, all: PermReadAll},
	http.MethodPut:    {own: PermUpdate, all: PermUpdateAll},
	http.MethodPatch:  {own: PermUpdate, all: PermUpdateAll},
	http.MethodDelete: {own: PermDelete, all: PermDeleteAll},
}

// MethodPermissions maps an HTTP method to its (own, all) permission pair.
// ok is false for methods that are never allowed.
func MethodPermissions(method string) (own, all Permission, ok bool) {
	perms, ok := methodTable[method]
	if !ok {
		return PermNone, PermNone, false
	}
	return perms.own, perms.all, true
}

// Evaluate applies the method table and the own/all precedence to grant.
// The all flag wins over scope. The own flag only counts for ScopeOwn.
func Evaluate(method string, scope Scope, grant Grant) Decision {
	own, all, ok := MethodPermissions(method)
	if !ok {
		return deny(ReasonUnmappedMethod)
	}
	if grant.Has(all) {
		return allow(ReasonAllGrant)
	}
	if !grant.Has(own) {
		return deny(ReasonMissingPermission)
	}
	if scope == ScopeOwn {
		return allow(ReasonOwnGrant)
	}
	return deny(ReasonScopeMismatch)
}

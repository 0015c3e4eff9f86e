// Package rbac implements the static role hierarchy enforced at the edge
// and inside protected handlers.
package rbac

// Role is one of the fixed roles ordered USER < STAFF < ADMIN.
type Role string

const (
	RoleUser  Role = "USER"
	RoleStaff Role = "STAFF"
	RoleAdmin Role = "ADMIN"
)

// grants lists, per role, every role it satisfies.
var grants = map[Role]map[Role]struct{}{
	RoleUser:  {RoleUser: {}},
	RoleStaff: {RoleUser: {}, RoleStaff: {}},
	RoleAdmin: {RoleUser: {}, RoleStaff: {}, RoleAdmin: {}},
}

// Parse returns the Role for a presented string. Unknown values report
// ok=false; callers must fail closed.
func Parse(s string) (Role, bool) {
	r := Role(s)
	if _, known := grants[r]; !known {
		return "", false
	}
	return r, true
}

// HasPermission reports whether the presented role satisfies the required
// one. An unparseable presented role always evaluates to false.
func HasPermission(presented string, required Role) bool {
	role, ok := Parse(presented)
	if !ok {
		return false
	}
	_, granted := grants[role][required]
	return granted
}

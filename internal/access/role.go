// Package access implements role-based scoping and per-action permission
// decisions for labor events
package access

import "fmt"

// Role is the closed set of access levels. Values match roles.id_rol
type Role int

const (
	RoleAdmin      Role = 1
	RoleSupervisor Role = 2
	RoleOperator   Role = 3
)

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleSupervisor:
		return "supervisor"
	case RoleOperator:
		return "operator"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleSupervisor || r == RoleOperator
}

// ParseRole converts a stored role id into a Role
func ParseRole(id int) (Role, error) {
	r := Role(id)
	if !r.Valid() {
		return 0, fmt.Errorf("unknown role id %d", id)
	}
	return r, nil
}

// Identity is the authenticated caller
type Identity struct {
	UserID uint
	Role   Role
	Email  string
}

// Is reports whether the identity holds one of the given roles
func (id Identity) Is(roles ...Role) bool {
	for _, r := range roles {
		if id.Role == r {
			return true
		}
	}
	return false
}

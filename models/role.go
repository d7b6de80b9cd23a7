package models

// Role is an account's tier in the hierarchy
type Role string

const (
	RolePowerhouse Role = "powerhouse"
	RoleSuper      Role = "super"
	RoleMaster     Role = "master"
	RolePlayer     Role = "player"
)

// parentRoles maps each role to the tier directly above it
var parentRoles = map[Role]Role{
	RoleSuper:  RolePowerhouse,
	RoleMaster: RoleSuper,
	RolePlayer: RoleMaster,
}

// Valid reports whether r is one of the four known roles
func (r Role) Valid() bool {
	switch r {
	case RolePowerhouse, RoleSuper, RoleMaster, RolePlayer:
		return true
	}
	return false
}

// ParentRole returns the role an account of this role must have as parent.
// The second return value is false for the root tier.
func (r Role) ParentRole() (Role, bool) {
	p, ok := parentRoles[r]
	return p, ok
}

// ChildRole returns the role directly below r, if any
func (r Role) ChildRole() (Role, bool) {
	for child, parent := range parentRoles {
		if parent == r {
			return child, true
		}
	}
	return "", false
}

func (r Role) String() string {
	return string(r)
}

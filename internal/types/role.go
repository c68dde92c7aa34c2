package types

import "github.com/samber/lo"

// Role is the role claim carried by every bearer token
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleManager      Role = "manager"
	RoleStaff        Role = "staff"
	RoleVeterinarian Role = "veterinarian"
	RoleVisitor      Role = "visitor"
)

// AllRoles lists every role a user can hold
var AllRoles = []Role{RoleAdmin, RoleManager, RoleStaff, RoleVeterinarian, RoleVisitor}

func (r Role) String() string {
	return string(r)
}

func (r Role) IsValid() bool {
	return lo.Contains(AllRoles, r)
}

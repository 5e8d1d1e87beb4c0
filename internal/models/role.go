package models

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Role is a staff privilege level. Roles are ordered: a higher role holds every privilege of the lower ones.
type Role int

const (
	RoleUser Role = iota + 1
	RoleEditor
	RoleAdmin
	RoleSuperAdmin
)

var roleNames = map[Role]string{
	RoleUser:       "user",
	RoleEditor:     "editor",
	RoleAdmin:      "admin",
	RoleSuperAdmin: "super_admin",
}

// Roles lists every known role from lowest to highest
func Roles() []Role {
	return []Role{RoleUser, RoleEditor, RoleAdmin, RoleSuperAdmin}
}

// ParseRole converts a role name to a Role
func ParseRole(name string) (Role, error) {
	for role, roleName := range roleNames {
		if roleName == name {
			return role, nil
		}
	}
	return 0, fmt.Errorf("unknown role: %q", name)
}

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// MarshalText encodes the role by name
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role: %d", int(r))
	}
	return []byte(roleNames[r]), nil
}

// MarshalJSON encodes the role by name and the zero role as null
func (r Role) MarshalJSON() ([]byte, error) {
	if r == 0 {
		return []byte("null"), nil
	}
	text, err := r.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalText decodes a role name
func (r *Role) UnmarshalText(text []byte) error {
	role, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// AtLeast reports whether r ranks at or above min
func (r Role) AtLeast(min Role) bool {
	return r.Valid() && r >= min
}

// Satisfies reports whether r meets any of the required roles.
// An empty requirement is satisfied by every valid role.
func (r Role) Satisfies(required []Role) bool {
	if !r.Valid() {
		return false
	}
	if len(required) == 0 {
		return true
	}
	return slices.ContainsFunc(required, r.AtLeast)
}

// Permissions describes what a role may do with investigations and users
type Permissions struct {
	CanRead        bool `json:"can_read"`
	CanCreate      bool `json:"can_create"`
	CanEdit        bool `json:"can_edit"`
	CanDelete      bool `json:"can_delete"`
	CanPublish     bool `json:"can_publish"`
	CanManageUsers bool `json:"can_manage_users"`
}

// PermissionsFor returns the permissions granted to a role.
// Anonymous callers (zero role) may only read published content.
func PermissionsFor(r Role) Permissions {
	return Permissions{
		CanRead:        true,
		CanCreate:      r.AtLeast(RoleEditor),
		CanEdit:        r.AtLeast(RoleEditor),
		CanDelete:      r.AtLeast(RoleAdmin),
		CanPublish:     r.AtLeast(RoleEditor),
		CanManageUsers: r.AtLeast(RoleAdmin),
	}
}

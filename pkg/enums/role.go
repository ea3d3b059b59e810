package enums

import (
	"fmt"
	"strings"
)

// Role is the kind of a role grant held by a user.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleDiner      Role = "diner"
	RoleFranchisee Role = "franchisee"
)

var validRoles = []Role{
	RoleAdmin,
	RoleDiner,
	RoleFranchisee,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// Scoped reports whether grants of this role carry a franchise scope.
func (r Role) Scoped() bool {
	return r == RoleFranchisee
}

// ParseRole converts raw input into a Role. Matching is case-insensitive.
func ParseRole(value string) (Role, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validRoles {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}

package access

import "github.com/angelmondragon/pizzeria-backend/pkg/enums"

// Grant is a single (role, scope) pair held by a user. ObjectID is the
// franchise id for franchisee grants and 0 otherwise.
type Grant struct {
	Role     enums.Role `json:"role"`
	ObjectID uint64     `json:"objectId,omitempty"`
}

// Caller is the authenticated identity a request acts as.
type Caller struct {
	UserID uint64  `json:"id"`
	Name   string  `json:"name"`
	Email  string  `json:"email"`
	Grants []Grant `json:"roles"`
}

// Authenticated reports whether the caller carries a user identity.
func (c *Caller) Authenticated() bool {
	return c != nil && c.UserID != 0
}

func (c *Caller) IsAdmin() bool {
	return c.HasRole(enums.RoleAdmin)
}

// HasRole ignores grant scope.
func (c *Caller) HasRole(role enums.Role) bool {
	if c == nil {
		return false
	}
	for _, g := range c.Grants {
		if g.Role == role {
			return true
		}
	}
	return false
}

// IsFranchiseeOf reports whether the caller holds a franchisee grant scoped to franchiseID.
func (c *Caller) IsFranchiseeOf(franchiseID uint64) bool {
	if c == nil || franchiseID == 0 {
		return false
	}
	for _, g := range c.Grants {
		if g.Role == enums.RoleFranchisee && g.ObjectID == franchiseID {
			return true
		}
	}
	return false
}

// PrimaryRole is used for log fields. Admin wins over franchisee over diner.
func (c *Caller) PrimaryRole() enums.Role {
	switch {
	case c.HasRole(enums.RoleAdmin):
		return enums.RoleAdmin
	case c.HasRole(enums.RoleFranchisee):
		return enums.RoleFranchisee
	case c.HasRole(enums.RoleDiner):
		return enums.RoleDiner
	}
	return ""
}

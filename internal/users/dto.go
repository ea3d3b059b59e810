package users

import (
	"github.com/angelmondragon/pizzeria-backend/internal/access"
	"github.com/angelmondragon/pizzeria-backend/pkg/db/models"
	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID    uint64         `json:"id"`
	Name  string         `json:"name"`
	Email string         `json:"email"`
	Roles []access.Grant `json:"roles"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Name         string
	Email        string
	PasswordHash string
	Grants       []access.Grant
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Roles: GrantsOf(u),
	}
}

// FromModels converts a page of users.
func FromModels(rows []models.User) []UserDTO {
	out := make([]UserDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}

// GrantsOf flattens the user's role rows.
func GrantsOf(u *models.User) []access.Grant {
	grants := make([]access.Grant, 0, len(u.Roles))
	for _, r := range u.Roles {
		grants = append(grants, access.Grant{Role: r.Role, ObjectID: r.ObjectID})
	}
	return grants
}

// CallerFor builds the access identity of a loaded user.
func CallerFor(u *models.User) *access.Caller {
	if u == nil {
		return nil
	}
	return &access.Caller{
		UserID: u.ID,
		Name:   u.Name,
		Email:  u.Email,
		Grants: GrantsOf(u),
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	grants := c.Grants
	if len(grants) == 0 {
		grants = []access.Grant{{Role: enums.RoleDiner}}
	}
	roles := make([]models.UserRole, 0, len(grants))
	for _, g := range grants {
		objectID := g.ObjectID
		if !g.Role.Scoped() {
			objectID = 0
		}
		roles = append(roles, models.UserRole{Role: g.Role, ObjectID: objectID})
	}
	return &models.User{
		Name:         c.Name,
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
		Roles:        roles,
	}
}

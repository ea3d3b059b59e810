package models

import (
	"time"

	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
)

// User represents the canonical identity entity.
type User struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	Name         string `gorm:"column:name;not null"`
	Email        string `gorm:"column:email;not null;uniqueIndex"`
	PasswordHash string `gorm:"column:password_hash;not null"`
	// SessionGeneration is embedded in every issued token; bumping it revokes them.
	SessionGeneration int64      `gorm:"column:session_generation;not null;default:0"`
	Roles             []UserRole `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// HasRole reports whether the user holds role, ignoring scope.
func (u User) HasRole(role enums.Role) bool {
	for _, grant := range u.Roles {
		if grant.Role == role {
			return true
		}
	}
	return false
}

// UserRole is a single (role, scope) grant. ObjectID is 0 for global roles
// and the franchise id for franchisee grants.
type UserRole struct {
	ID        uint64     `gorm:"primaryKey;autoIncrement"`
	UserID    uint64     `gorm:"column:user_id;not null;index"`
	Role      enums.Role `gorm:"column:role;not null"`
	ObjectID  uint64     `gorm:"column:object_id;not null;default:0;index"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (UserRole) TableName() string { return "user_roles" }

package auth

import (
	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
)

// RoleClaim mirrors a user role grant inside the token.
type RoleClaim struct {
	Role     enums.Role `json:"role"`
	ObjectID uint64     `json:"objectId,omitempty"`
}

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID     uint64
	Name       string
	Email      string
	Roles      []RoleClaim
	Generation int64
	JTI        string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID     uint64      `json:"id"`
	Name       string      `json:"name"`
	Email      string      `json:"email"`
	Roles      []RoleClaim `json:"roles"`
	Generation int64       `json:"gen"`
	jwt.RegisteredClaims
}

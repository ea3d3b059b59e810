package auth

import (
	"github.com/angelmondragon/pizzeria-backend/internal/users"
)

// RegisterRequest is the body of POST /api/auth.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateUserRequest carries the optional profile fields. Empty values are left unchanged.
type UpdateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse is returned whenever a fresh token is issued.
type SessionResponse struct {
	User  *users.UserDTO `json:"user"`
	Token string         `json:"token"`
}

// ListUsersResponse is one page of users.
type ListUsersResponse struct {
	Users []users.UserDTO `json:"users"`
	More  bool            `json:"more"`
}

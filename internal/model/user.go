package model

import "strings"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// NormalizeRole maps anything other than "admin" to "user".
func NormalizeRole(role string) string {
	if strings.ToLower(strings.TrimSpace(role)) == RoleAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// User is a stored account. The username is the key in the users document and
// is not repeated inside the record.
type User struct {
	Username string `json:"-"`
	Hash     string `json:"hash"`
	Salt     string `json:"salt"`
	Role     string `json:"role"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest represents an invite-based registration request.
type RegisterRequest struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse is returned after a successful login or registration. The
// session token itself travels in the auth cookie.
type AuthResponse struct {
	OK       bool   `json:"ok"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Token    string `json:"-"`
}

// UserResponse represents the authenticated caller.
type UserResponse struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

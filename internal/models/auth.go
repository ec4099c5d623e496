package models

import "github.com/golang-jwt/jwt/v5"

// UserRole is the role carried in an access token.
type UserRole string

// Roles recognised by the write guard.
const (
	RoleAdmin  UserRole = "ADMIN"
	RoleViewer UserRole = "VIEWER"
)

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	Email  string   `json:"email"`
	jwt.RegisteredClaims
}

package models

import "github.com/golang-jwt/jwt/v5"

// UserClaims are the bearer token claims accepted by the API. Tokens are
// issued elsewhere; this service only verifies them.
type UserClaims struct {
	jwt.RegisteredClaims
	UserID uint   `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role"`
}

// IsAdmin reports whether the claims grant access to analyst tooling.
func (c *UserClaims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

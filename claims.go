package core

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims is the view services get of a validated access token.
type AuthClaims interface {
	Subject() string
	UserID() string
	Username() string
	Role() Role
	SessionID() string
	Expires() time.Time
	IssuedAt() time.Time
}

// JWTClaims is the concrete claim set carried by access tokens: identity,
// ordinal role (stringified), and the owning session id as jti.
type JWTClaims struct {
	jwt.RegisteredClaims
	UID      string `json:"uid,omitempty"`
	Name     string `json:"username,omitempty"`
	UserRole string `json:"role,omitempty"`
}

var _ AuthClaims = (*JWTClaims)(nil)

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the user ID
func (c *JWTClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// Username returns the account username
func (c *JWTClaims) Username() string {
	return c.Name
}

// Role parses the ordinal role claim; unknown values resolve to RoleNone.
func (c *JWTClaims) Role() Role {
	return ParseRole(c.UserRole)
}

// SessionID returns the jti claim binding the token to its session row.
func (c *JWTClaims) SessionID() string {
	return c.RegisteredClaims.ID
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

package gatekeeper

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AuthClaims represents structured session claims with role and whitelist checks
type AuthClaims interface {
	Subject() string
	UserID() string
	Email() string
	Role() Role
	IsWhitelisted() bool
	HasRole(role Role) bool
	IsAtLeast(minRole Role) bool
	CanManageUsers() bool
	Expires() time.Time
	IssuedAt() time.Time
}

// JWTClaims is the concrete implementation of AuthClaims
type JWTClaims struct {
	jwt.RegisteredClaims
	UID         string `json:"uid,omitempty"`
	UserEmail   string `json:"email,omitempty"`
	UserRole    Role   `json:"role,omitempty"`
	Whitelisted bool   `json:"wl"`
}

// Verify interface compliance
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

// Email returns the principal's email
func (c *JWTClaims) Email() string {
	return c.UserEmail
}

// Role returns the principal's role
func (c *JWTClaims) Role() Role {
	return c.UserRole
}

// IsWhitelisted reports the whitelist flag captured at issuance. The flag is
// trusted for the token's lifetime; de-whitelisting takes effect on expiry.
func (c *JWTClaims) IsWhitelisted() bool {
	return c.Whitelisted
}

// HasRole checks if the principal has a specific role
func (c *JWTClaims) HasRole(role Role) bool {
	return c.UserRole == role
}

// IsAtLeast checks if the principal's role is at least the minimum required role
func (c *JWTClaims) IsAtLeast(minRole Role) bool {
	return IsAtLeast(c.UserRole, minRole)
}

// CanManageUsers checks if the principal may use the admin surface
func (c *JWTClaims) CanManageUsers() bool {
	return CanManageUsers(c.UserRole)
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

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}

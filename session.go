package gatekeeper

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

var _ Session = &SessionObject{}

// SessionObject is the decoded proof of a prior successful authentication.
// It reflects the claims at issuance; whitelist status is not re-read.
type SessionObject struct {
	UserID         string     `json:"user_id,omitempty"`
	Email          string     `json:"email,omitempty"`
	Role           Role       `json:"role,omitempty"`
	IsWhitelisted  bool       `json:"is_whitelisted"`
	Issuer         string     `json:"issuer,omitempty"`
	IssuedAt       *time.Time `json:"issued_at,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
}

func (s *SessionObject) GetUserID() string {
	return s.UserID
}

func (s *SessionObject) GetUserUUID() (uuid.UUID, error) {
	return uuid.Parse(s.UserID)
}

func (s *SessionObject) GetEmail() string {
	return s.Email
}

func (s *SessionObject) GetRole() Role {
	if s.Role == "" {
		return RoleUser
	}
	return s.Role
}

func (s *SessionObject) GetIsWhitelisted() bool {
	return s.IsWhitelisted
}

func (s *SessionObject) GetIssuedAt() *time.Time {
	return s.IssuedAt
}

func (s *SessionObject) GetExpiration() *time.Time {
	return s.ExpirationDate
}

// IsAtLeast checks if the session's role is at least the minimum required role
func (s *SessionObject) IsAtLeast(minRole Role) bool {
	return IsAtLeast(s.GetRole(), minRole)
}

// CanManageUsers checks if the session may use the admin surface
func (s *SessionObject) CanManageUsers() bool {
	return CanManageUsers(s.GetRole())
}

// Valid reports whether the session is inside its TTL window at the given
// instant. Whitelist staleness is accepted until expiry.
func (s *SessionObject) Valid(now time.Time) bool {
	if s.ExpirationDate == nil {
		return false
	}
	return now.Before(*s.ExpirationDate)
}

func (s SessionObject) String() string {
	issuedAt := "<nil>"
	if s.IssuedAt != nil {
		issuedAt = s.IssuedAt.Format(time.RFC1123)
	}
	return fmt.Sprintf(
		"user=%s email=%s role=%s wl=%t iss=%s iat=%s",
		s.UserID,
		s.Email,
		s.Role,
		s.IsWhitelisted,
		s.Issuer,
		issuedAt,
	)
}

// sessionFromAuthClaims creates a SessionObject from validated claims
func sessionFromAuthClaims(claims AuthClaims) (*SessionObject, error) {
	if claims == nil {
		return nil, ErrUnableToDecodeSession
	}

	issuedAt := claims.IssuedAt()
	expiresAt := claims.Expires()

	session := &SessionObject{
		UserID:         claims.UserID(),
		Email:          claims.Email(),
		Role:           claims.Role(),
		IsWhitelisted:  claims.IsWhitelisted(),
		IssuedAt:       &issuedAt,
		ExpirationDate: &expiresAt,
	}

	if jwtClaims, ok := claims.(*JWTClaims); ok {
		session.Issuer = jwtClaims.RegisteredClaims.Issuer
	}

	return session, nil
}

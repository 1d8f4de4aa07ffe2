package guard

import (
	"github.com/golang-jwt/jwt/v5"
)

// roleRank mirrors the role ladder used by the token issuer.
var roleRank = map[string]int{
	"user":     1,
	"co-owner": 2,
	"admin":    3,
}

// guardClaims decodes the session claims when no external TokenValidator is
// configured, e.g. when the guard runs on a JWK set or a bare signing key.
type guardClaims struct {
	jwt.RegisteredClaims
	UID         string `json:"uid,omitempty"`
	UserEmail   string `json:"email,omitempty"`
	UserRole    string `json:"role,omitempty"`
	Whitelisted bool   `json:"wl"`
}

var _ AuthClaims = (*guardClaims)(nil)

func (c *guardClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

func (c *guardClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

func (c *guardClaims) Email() string {
	return c.UserEmail
}

func (c *guardClaims) Role() string {
	if c.UserRole == "" {
		return "user"
	}
	return c.UserRole
}

func (c *guardClaims) IsWhitelisted() bool {
	return c.Whitelisted
}

func (c *guardClaims) HasRole(role string) bool {
	return c.Role() == role
}

func (c *guardClaims) IsAtLeast(minRole string) bool {
	have, ok := roleRank[c.Role()]
	if !ok {
		return false
	}
	want, ok := roleRank[minRole]
	if !ok {
		return false
	}
	return have >= want
}

func (c *guardClaims) CanManageUsers() bool {
	return c.IsAtLeast("co-owner")
}

type keyFuncValidator struct {
	keyFunc jwt.Keyfunc
}

func (v *keyFuncValidator) Validate(tokenString string) (AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &guardClaims{}, v.keyFunc)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*guardClaims)
	if !ok || !token.Valid {
		return nil, ErrJWTMissingOrMalformed
	}

	return claims, nil
}

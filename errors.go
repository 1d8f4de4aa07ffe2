package gatekeeper

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryAuth).
	WithTextCode("IDENTITY_NOT_FOUND").
	WithCode(goerrors.CodeUnauthorized)

// ErrMismatchedHashAndPassword is the single credential failure surfaced to
// callers; it never distinguishes a missing user from a wrong password.
var ErrMismatchedHashAndPassword = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode("INVALID_CREDENTIALS").
	WithCode(goerrors.CodeUnauthorized)

// ErrNotWhitelisted is returned for principals outside the whitelist
var ErrNotWhitelisted = goerrors.New("access denied, user not whitelisted", goerrors.CategoryAuthz).
	WithTextCode("NOT_WHITELISTED").
	WithCode(goerrors.CodeForbidden)

// ErrInsufficientRole is returned when a valid principal lacks the required tier
var ErrInsufficientRole = goerrors.New("access denied, insufficient role", goerrors.CategoryAuthz).
	WithTextCode("INSUFFICIENT_ROLE").
	WithCode(goerrors.CodeForbidden)

// ErrTokenExpired covers session tokens past their TTL
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode("TOKEN_EXPIRED").
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed covers undecodable or badly signed session tokens
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode("TOKEN_MALFORMED").
	WithCode(goerrors.CodeUnauthorized)

// ErrMagicTokenInvalid is the single terminal answer for magic tokens that
// are absent, already consumed, or past their window.
var ErrMagicTokenInvalid = goerrors.New("magic token is invalid or expired", goerrors.CategoryAuth).
	WithTextCode("MAGIC_TOKEN_INVALID").
	WithCode(goerrors.CodeUnauthorized)

// ErrDuplicateEmail is returned when creating a principal with a taken email
var ErrDuplicateEmail = goerrors.New("user with this email already exists", goerrors.CategoryConflict).
	WithTextCode("DUPLICATE_EMAIL").
	WithCode(goerrors.CodeConflict)

// ErrUserNotFound is returned for admin operations against unknown principals
var ErrUserNotFound = goerrors.New("user not found", goerrors.CategoryNotFound).
	WithTextCode("USER_NOT_FOUND").
	WithCode(goerrors.CodeNotFound)

// ErrNoEmptyString guards hashing empty passwords
var ErrNoEmptyString = goerrors.New("value must not be empty", goerrors.CategoryBadInput).
	WithCode(goerrors.CodeBadRequest)

// ErrUnableToFindSession is the error when our request has no session
var ErrUnableToFindSession = errors.New("unable to find session")

// ErrUnableToDecodeSession unable to decode JWT from session cookie
var ErrUnableToDecodeSession = errors.New("unable to decode session")

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// HTTPStatus translates an error into the response taxonomy: validation 400,
// auth 401, authz 403, not found 404, conflict 409, everything else 500.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return http.StatusInternalServerError
	}

	if richErr.Code > 0 {
		return richErr.Code
	}

	switch richErr.Category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the error text safe to surface to callers. Internal
// failures collapse to a generic message so no persistence detail leaks.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.Category != goerrors.CategoryInternal {
		return richErr.Message
	}

	return "An unexpected server error occurred"
}

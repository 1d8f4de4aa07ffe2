package gatekeeper

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
)

// StoreWhitelist answers whitelist and role lookups from the users table.
type StoreWhitelist struct {
	users  UserStore
	logger Logger
}

var _ WhitelistProvider = (*StoreWhitelist)(nil)

// NewStoreWhitelist creates a store backed whitelist provider
func NewStoreWhitelist(users UserStore) *StoreWhitelist {
	return &StoreWhitelist{
		users:  users,
		logger: defLogger{},
	}
}

func (w *StoreWhitelist) WithLogger(logger Logger) *StoreWhitelist {
	if logger != nil {
		w.logger = logger
	}
	return w
}

// IsWhitelisted reports the is_whitelisted flag for the email. Unknown
// emails are simply not whitelisted.
func (w *StoreWhitelist) IsWhitelisted(ctx context.Context, email string) (bool, error) {
	user, err := w.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return false, nil
		}
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "whitelist lookup failed")
	}

	return user.IsWhitelisted, nil
}

// RoleOf returns the principal's role; unknown emails rank as plain users.
func (w *StoreWhitelist) RoleOf(ctx context.Context, email string) (Role, error) {
	user, err := w.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return RoleUser, nil
		}
		return RoleUser, goerrors.Wrap(err, goerrors.CategoryInternal, "role lookup failed")
	}

	if role, ok := ParseRole(user.Role); ok {
		return role, nil
	}

	w.logger.Warn("user %s has unknown role %q, treating as base tier", user.ID.String(), user.Role)
	return RoleUser, nil
}

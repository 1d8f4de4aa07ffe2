package gatekeeper

import (
	"context"
	"crypto/subtle"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// WhitelistEntry is one principal in the config backed whitelist.
type WhitelistEntry struct {
	Email  string
	Secret string
	Role   Role
}

// ConfigWhitelist is the environment-variable whitelist variant: a fixed
// entry list of the form "email:password:role,email:password". Entries whose
// secret looks like a bcrypt hash are compared with bcrypt, the rest with a
// constant-time equality check.
type ConfigWhitelist struct {
	entries map[string]WhitelistEntry
}

var (
	_ WhitelistProvider = (*ConfigWhitelist)(nil)
	_ IdentityProvider  = (*ConfigWhitelist)(nil)
)

// NewConfigWhitelist parses the entry list. Malformed entries fail loudly
// rather than silently shrinking the whitelist.
func NewConfigWhitelist(raw string) (*ConfigWhitelist, error) {
	entries := map[string]WhitelistEntry{}

	for _, chunk := range strings.Split(raw, ",") {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}

		parts := strings.Split(chunk, ":")
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return nil, goerrors.New("malformed whitelist entry, want email:password[:role]", goerrors.CategoryBadInput).
				WithMetadata(map[string]any{"entry": chunk})
		}

		entry := WhitelistEntry{
			Email:  NormalizeEmail(parts[0]),
			Secret: parts[1],
			Role:   RoleUser,
		}

		if len(parts) > 2 {
			role, ok := ParseRole(parts[2])
			if !ok {
				return nil, goerrors.New("whitelist entry has an unknown role", goerrors.CategoryBadInput).
					WithMetadata(map[string]any{"entry": chunk, "role": parts[2]})
			}
			entry.Role = role
		}

		entries[entry.Email] = entry
	}

	return &ConfigWhitelist{entries: entries}, nil
}

// Entries returns the parsed whitelist, mostly for diagnostics.
func (w *ConfigWhitelist) Entries() []WhitelistEntry {
	out := make([]WhitelistEntry, 0, len(w.entries))
	for _, e := range w.entries {
		out = append(out, e)
	}
	return out
}

// IsWhitelisted reports membership; presence in the entry list is the whitelist.
func (w *ConfigWhitelist) IsWhitelisted(_ context.Context, email string) (bool, error) {
	_, ok := w.entries[NormalizeEmail(email)]
	return ok, nil
}

// RoleOf returns the configured role; unknown emails rank as plain users.
func (w *ConfigWhitelist) RoleOf(_ context.Context, email string) (Role, error) {
	if entry, ok := w.entries[NormalizeEmail(email)]; ok {
		return entry.Role, nil
	}
	return RoleUser, nil
}

// VerifyIdentity checks the presented password against the configured secret.
// Unknown emails still burn a hash comparison so timing stays flat.
func (w *ConfigWhitelist) VerifyIdentity(_ context.Context, email, password string) (Identity, error) {
	entry, ok := w.entries[NormalizeEmail(email)]
	if !ok {
		CompareDummyHash(password)
		return nil, ErrMismatchedHashAndPassword
	}

	if isBcryptHash(entry.Secret) {
		if err := ComparePasswordAndHash(password, entry.Secret); err != nil {
			return nil, ErrMismatchedHashAndPassword
		}
	} else if subtle.ConstantTimeCompare([]byte(entry.Secret), []byte(password)) != 1 {
		return nil, ErrMismatchedHashAndPassword
	}

	return configIdentity(entry), nil
}

// FindIdentityByEmail resolves the entry without a credential check; used by
// the magic-link flow after a token has been consumed.
func (w *ConfigWhitelist) FindIdentityByEmail(_ context.Context, email string) (Identity, error) {
	entry, ok := w.entries[NormalizeEmail(email)]
	if !ok {
		return nil, ErrIdentityNotFound
	}

	return configIdentity(entry), nil
}

func configIdentity(entry WhitelistEntry) Identity {
	return authIdentity{
		// config entries have no stable row id; the email is the identifier
		id:          entry.Email,
		email:       entry.Email,
		role:        entry.Role,
		whitelisted: true,
	}
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

package gatekeeper

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
)

// UserStore is the slice of the Users repository the provider needs
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
}

// UserProvider verifies credentials against the users table and gates the
// result on the whitelist flag.
type UserProvider struct {
	store    UserStore
	logger   Logger
	provider LoggerProvider
}

var _ IdentityProvider = (*UserProvider)(nil)

// NewUserProvider will create a new UserProvider
func NewUserProvider(store UserStore) *UserProvider {
	loggerProvider, logger := ResolveLogger("gatekeeper.user_provider", nil, nil)
	return &UserProvider{
		store:    store,
		logger:   logger,
		provider: loggerProvider,
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	u.provider, u.logger = ResolveLogger("gatekeeper.user_provider", u.provider, l)
	return u
}

// WithLoggerProvider overrides the logger provider used by the user provider.
func (u *UserProvider) WithLoggerProvider(provider LoggerProvider) *UserProvider {
	u.provider, u.logger = ResolveLogger("gatekeeper.user_provider", provider, u.logger)
	return u
}

// VerifyIdentity will find the user, compare the password, check the
// whitelist, and return the identity. A missing user and a wrong password
// are indistinguishable to the caller, and both cost one bcrypt comparison.
func (u *UserProvider) VerifyIdentity(ctx context.Context, email, password string) (Identity, error) {
	user, err := u.store.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if repository.IsRecordNotFound(err) {
			CompareDummyHash(password)
			return nil, ErrMismatchedHashAndPassword
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user during verification")
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		return nil, ErrMismatchedHashAndPassword
	}

	if !user.IsWhitelisted {
		return nil, ErrNotWhitelisted
	}

	return identityFromUser(user), nil
}

// FindIdentityByEmail resolves a principal without a credential check; the
// magic-link flow uses it after consuming a token. The whitelist is still
// enforced here, so a de-whitelisted user cannot redeem an older link.
func (u *UserProvider) FindIdentityByEmail(ctx context.Context, email string) (Identity, error) {
	user, err := u.store.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user")
	}

	if !user.IsWhitelisted {
		return nil, ErrNotWhitelisted
	}

	return identityFromUser(user), nil
}

type authIdentity struct {
	id          string
	email       string
	role        Role
	whitelisted bool
}

func (a authIdentity) ID() string {
	return a.id
}

func (a authIdentity) Email() string {
	return a.email
}

func (a authIdentity) Role() Role {
	if a.role == "" {
		return RoleUser
	}
	return a.role
}

func (a authIdentity) Whitelisted() bool {
	return a.whitelisted
}

var _ Identity = authIdentity{}

func identityFromUser(user *User) Identity {
	role := user.Role
	if _, ok := ParseRole(role); !ok {
		role = RoleUser
	}

	return authIdentity{
		id:          user.ID.String(),
		email:       user.Email,
		role:        role,
		whitelisted: user.IsWhitelisted,
	}
}

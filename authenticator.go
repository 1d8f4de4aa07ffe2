package gatekeeper

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

// Auther is the default Authenticator: it verifies credentials through an
// IdentityProvider, gates access on a WhitelistProvider, and mints session
// tokens through a TokenService.
type Auther struct {
	provider       IdentityProvider
	whitelist      WhitelistProvider
	tokenService   TokenService
	tokenValidator TokenValidator
	magic          *MagicLink
	logger         Logger
}

var _ Authenticator = &Auther{}

// NewAuthenticator returns a new Auther wired to the given providers.
func NewAuthenticator(provider IdentityProvider, whitelist WhitelistProvider, cfg Config) *Auther {
	tokenService := NewTokenService(
		[]byte(cfg.GetSigningKey()),
		cfg.GetTokenExpiration(),
		cfg.GetIssuer(),
		cfg.GetAudience(),
		nil,
	)

	return &Auther{
		provider:       provider,
		whitelist:      whitelist,
		tokenService:   tokenService,
		tokenValidator: tokenService,
		logger:         defLogger{},
	}
}

func (a *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// WithTokenService overrides the default HS256 token service.
func (a *Auther) WithTokenService(ts TokenService) *Auther {
	if ts != nil {
		a.tokenService = ts
		a.tokenValidator = ts
	}
	return a
}

// WithTokenValidator overrides validation only, e.g. to accept tokens issued
// by a different service while still minting our own.
func (a *Auther) WithTokenValidator(tv TokenValidator) *Auther {
	if tv != nil {
		a.tokenValidator = tv
	}
	return a
}

// WithMagicLink attaches the passwordless login flow.
func (a *Auther) WithMagicLink(m *MagicLink) *Auther {
	a.magic = m
	return a
}

// TokenService exposes the underlying token service, mostly so callers can
// share it with route middleware.
func (a *Auther) TokenService() TokenService {
	return a.tokenService
}

// Login authenticates email and password and returns a signed session token.
// The whitelist is consulted through the identity provider, so a valid
// password on a non whitelisted account still fails.
func (a *Auther) Login(ctx context.Context, email, password string) (string, error) {
	identity, err := a.provider.VerifyIdentity(ctx, email, password)
	if err != nil {
		a.logger.Debug("Login rejected for %s", NormalizeEmail(email))
		return "", err
	}

	token, err := a.tokenService.Generate(identity)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate session token")
	}

	a.logger.Info("Login ok for %s role=%s", identity.Email(), identity.Role())

	return token, nil
}

// LoginWithMagicToken redeems a magic token for a session token. The token is
// consumed before any other check so it can never be redeemed twice, and the
// whitelist is re-read at redemption time rather than trusted from issuance.
func (a *Auther) LoginWithMagicToken(ctx context.Context, token string) (string, error) {
	if a.magic == nil {
		return "", goerrors.New("magic link login is not configured", goerrors.CategoryInternal)
	}

	email, err := a.magic.Verify(ctx, token)
	if err != nil {
		return "", err
	}

	identity, err := a.provider.FindIdentityByEmail(ctx, email)
	if err != nil {
		if goerrors.Is(err, ErrIdentityNotFound) {
			// the token was valid but the account is gone, treat both the
			// same so the response does not leak which one happened
			return "", ErrMagicTokenInvalid
		}
		return "", err
	}

	ok, err := a.whitelist.IsWhitelisted(ctx, identity.Email())
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "whitelist check failed during magic login")
	}

	if !ok {
		a.logger.Warn("magic token for non whitelisted account %s", identity.Email())
		return "", ErrNotWhitelisted
	}

	session, err := a.tokenService.Generate(identity)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate session token")
	}

	a.logger.Info("magic login ok for %s", identity.Email())

	return session, nil
}

// SessionFromToken validates the raw token and decodes the session claims.
func (a *Auther) SessionFromToken(token string) (Session, error) {
	claims, err := a.tokenValidator.Validate(token)
	if err != nil {
		return nil, err
	}

	return sessionFromAuthClaims(claims)
}

// IdentityFromSession resolves the live identity behind a session, reading
// current role and whitelist state from the provider rather than the claims.
func (a *Auther) IdentityFromSession(ctx context.Context, session Session) (Identity, error) {
	if session == nil {
		return nil, ErrUnableToFindSession
	}

	return a.provider.FindIdentityByEmail(ctx, session.GetEmail())
}

package gatekeeper

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// DefaultMagicTokenTTL is how long an issued magic token stays redeemable.
const DefaultMagicTokenTTL = 15 * time.Minute

// MagicLink issues and redeems single use login tokens delivered by email.
type MagicLink struct {
	store     TokenStore
	whitelist WhitelistProvider
	mailer    Mailer
	baseURL   string
	ttl       time.Duration
	logger    Logger
	now       func() time.Time
	// async controls whether delivery happens on a goroutine; tests turn
	// it off to make Send observable
	async bool
}

// NewMagicLink creates the passwordless flow around a token store and mailer.
func NewMagicLink(store TokenStore, whitelist WhitelistProvider, mailer Mailer, cfg Config) *MagicLink {
	ttl := cfg.GetMagicTokenTTL()
	if ttl <= 0 {
		ttl = DefaultMagicTokenTTL
	}

	return &MagicLink{
		store:     store,
		whitelist: whitelist,
		mailer:    mailer,
		baseURL:   cfg.GetMagicLinkBaseURL(),
		ttl:       ttl,
		logger:    defLogger{},
		now:       time.Now,
		async:     true,
	}
}

func (m *MagicLink) WithLogger(logger Logger) *MagicLink {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// WithClock overrides the time source, used in tests.
func (m *MagicLink) WithClock(now func() time.Time) *MagicLink {
	if now != nil {
		m.now = now
	}
	return m
}

// WithSyncDelivery makes Issue wait for the mailer instead of detaching.
func (m *MagicLink) WithSyncDelivery() *MagicLink {
	m.async = false
	return m
}

// Issue creates a token for the email and mails the sign-in link. Non
// whitelisted emails are silently skipped so the endpoint cannot be used to
// enumerate the whitelist; callers respond identically either way.
func (m *MagicLink) Issue(ctx context.Context, email string) error {
	email = NormalizeEmail(email)

	ok, err := m.whitelist.IsWhitelisted(ctx, email)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "whitelist check failed during magic link issue")
	}

	if !ok {
		m.logger.Debug("magic link skipped for non whitelisted %s", email)
		return nil
	}

	token, err := generateMagicToken()
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate magic token")
	}

	expiresAt := m.now().Add(m.ttl)
	if err := m.store.Save(ctx, token, email, expiresAt); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist magic token")
	}

	msg := BuildMagicLinkEmail(email, m.Link(token))

	if !m.async {
		if err := m.mailer.Send(ctx, msg); err != nil {
			m.logger.Error("magic link delivery failed for %s: %v", email, err)
		}
		return nil
	}

	// delivery failures are logged, never surfaced to the requester
	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := m.mailer.Send(sendCtx, msg); err != nil {
			m.logger.Error("magic link delivery failed for %s: %v", email, err)
		}
	}()

	return nil
}

// Verify consumes the token and returns the email it was issued for.
func (m *MagicLink) Verify(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrMagicTokenInvalid
	}

	return m.store.Consume(ctx, token)
}

// Link builds the absolute verification URL for the token.
func (m *MagicLink) Link(token string) string {
	base := m.baseURL
	if base == "" {
		base = "http://localhost:3000"
	}
	return fmt.Sprintf("%s/api/auth/magic-link/verify?token=%s", base, url.QueryEscape(token))
}

func generateMagicToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

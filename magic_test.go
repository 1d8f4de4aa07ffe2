package gatekeeper_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	gatekeeper "github.com/pixelmorph/go-gatekeeper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticWhitelist is a fixed email to role map for tests
type staticWhitelist map[string]gatekeeper.Role

func (w staticWhitelist) IsWhitelisted(_ context.Context, email string) (bool, error) {
	_, ok := w[gatekeeper.NormalizeEmail(email)]
	return ok, nil
}

func (w staticWhitelist) RoleOf(_ context.Context, email string) (gatekeeper.Role, error) {
	if role, ok := w[gatekeeper.NormalizeEmail(email)]; ok {
		return role, nil
	}
	return gatekeeper.RoleUser, nil
}

// recordingMailer captures outbound messages instead of sending them
type recordingMailer struct {
	sent []gatekeeper.MailMessage
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg gatekeeper.MailMessage) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

// tokenFromMail digs the issued token out of the verification link
func tokenFromMail(t *testing.T, msg gatekeeper.MailMessage) string {
	t.Helper()
	idx := strings.Index(msg.HTML, "token=")
	require.GreaterOrEqual(t, idx, 0, "mail should carry a verification link")
	token := msg.HTML[idx+len("token="):]
	if cut := strings.IndexAny(token, `"<`); cut >= 0 {
		token = token[:cut]
	}
	return token
}

func newTestMagicLink(store gatekeeper.TokenStore, whitelist gatekeeper.WhitelistProvider, mailer gatekeeper.Mailer) *gatekeeper.MagicLink {
	cfg := &gatekeeper.StaticConfig{SigningKey: "test-signing-key"}
	return gatekeeper.NewMagicLink(store, whitelist, mailer, cfg).WithSyncDelivery()
}

func TestMagicLinkIssueAndVerify(t *testing.T) {
	ctx := context.Background()
	store := gatekeeper.NewMemoryTokenStore()
	mailer := &recordingMailer{}
	magic := newTestMagicLink(store, staticWhitelist{"user@example.com": gatekeeper.RoleUser}, mailer)

	err := magic.Issue(ctx, "User@Example.com")
	require.NoError(t, err)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "user@example.com", mailer.sent[0].To)
	assert.Equal(t, 1, store.Len())

	token := tokenFromMail(t, mailer.sent[0])
	require.NotEmpty(t, token)

	email, err := magic.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", email)

	// a token redeems exactly once
	_, err = magic.Verify(ctx, token)
	assert.ErrorIs(t, err, gatekeeper.ErrMagicTokenInvalid)
}

func TestMagicLinkIssueSkipsNonWhitelisted(t *testing.T) {
	ctx := context.Background()
	store := gatekeeper.NewMemoryTokenStore()
	mailer := &recordingMailer{}
	magic := newTestMagicLink(store, staticWhitelist{}, mailer)

	// same nil response as the whitelisted path so callers cannot enumerate
	err := magic.Issue(ctx, "outsider@example.com")
	require.NoError(t, err)

	assert.Empty(t, mailer.sent)
	assert.Equal(t, 0, store.Len())
}

func TestMagicLinkIssueSwallowsDeliveryFailure(t *testing.T) {
	ctx := context.Background()
	store := gatekeeper.NewMemoryTokenStore()
	mailer := &recordingMailer{err: errors.New("smtp unavailable")}
	magic := newTestMagicLink(store, staticWhitelist{"user@example.com": gatekeeper.RoleUser}, mailer)

	err := magic.Issue(ctx, "user@example.com")
	assert.NoError(t, err)
	// token stays pending even though the mail never went out
	assert.Equal(t, 1, store.Len())
}

func TestMagicLinkVerifyEmptyToken(t *testing.T) {
	magic := newTestMagicLink(gatekeeper.NewMemoryTokenStore(), staticWhitelist{}, &recordingMailer{})

	_, err := magic.Verify(context.Background(), "")
	assert.ErrorIs(t, err, gatekeeper.ErrMagicTokenInvalid)
}

func TestMagicLinkLink(t *testing.T) {
	cfg := &gatekeeper.StaticConfig{
		SigningKey:       "test-signing-key",
		MagicLinkBaseURL: "https://app.example.com",
	}
	magic := gatekeeper.NewMagicLink(gatekeeper.NewMemoryTokenStore(), staticWhitelist{}, &recordingMailer{}, cfg)

	link := magic.Link("abc 123")
	assert.Equal(t, "https://app.example.com/api/auth/magic-link/verify?token=abc+123", link)
}

func TestMagicLinkLinkDefaultsBaseURL(t *testing.T) {
	magic := newTestMagicLink(gatekeeper.NewMemoryTokenStore(), staticWhitelist{}, &recordingMailer{})

	link := magic.Link("abc")
	assert.Equal(t, "http://localhost:3000/api/auth/magic-link/verify?token=abc", link)
}

func TestBuildMagicLinkEmail(t *testing.T) {
	msg := gatekeeper.BuildMagicLinkEmail("user@example.com", "https://app.example.com/verify?token=abc")

	assert.Equal(t, "user@example.com", msg.To)
	assert.Equal(t, "Your sign-in link", msg.Subject)
	assert.Contains(t, msg.HTML, "https://app.example.com/verify?token=abc")
	assert.Contains(t, msg.HTML, "user@example.com")
}

package gatekeeper

import (
	"context"
	"fmt"
)

// MailMessage is a single outbound email.
type MailMessage struct {
	To      string
	Subject string
	HTML    string
}

// Mailer delivers outbound mail. The default implementation only logs, real
// deployments plug in their delivery provider here.
type Mailer interface {
	Send(ctx context.Context, msg MailMessage) error
}

// LogMailer writes the message to the logger instead of sending it. Useful in
// development where the magic link is read off the server log.
type LogMailer struct {
	logger Logger
}

var _ Mailer = (*LogMailer)(nil)

func NewLogMailer(logger Logger) *LogMailer {
	if logger == nil {
		logger = defLogger{}
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, msg MailMessage) error {
	m.logger.Info("mail to=%s subject=%q", msg.To, msg.Subject)
	m.logger.Debug("mail body: %s", msg.HTML)
	return nil
}

// BuildMagicLinkEmail renders the sign-in email for the given link.
func BuildMagicLinkEmail(email, link string) MailMessage {
	html := fmt.Sprintf(`<div style="font-family: sans-serif; max-width: 480px; margin: 0 auto;">
  <h2>Sign in to your account</h2>
  <p>Hello,</p>
  <p>Click the button below to sign in as <strong>%s</strong>. This link expires in 15 minutes and can only be used once.</p>
  <p style="margin: 24px 0;">
    <a href="%s" style="background: #111; color: #fff; padding: 12px 24px; border-radius: 6px; text-decoration: none;">Sign in</a>
  </p>
  <p>If the button does not work, copy this address into your browser:</p>
  <p><a href="%s">%s</a></p>
  <p style="color: #666; font-size: 13px;">If you did not request this email you can safely ignore it.</p>
</div>`, email, link, link, link)

	return MailMessage{
		To:      email,
		Subject: "Your sign-in link",
		HTML:    html,
	}
}

// Package email provides direct SMTP sending, used by the email channel
// only when no broker is configured (development and single-node setups).
package email

import (
	"context"
	"errors"

	"leadrelay_backend/platform/config"

	"github.com/wneessen/go-mail"
)

// ErrNoTransport means no delivery path exists for the message.
var ErrNoTransport = errors.New("no email transport configured")

// Sender delivers a single email.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// NoopSender rejects every message with ErrNoTransport. Used when neither
// broker nor SMTP is configured so the email channel fails fast at dispatch
// instead of pretending a message went out.
type NoopSender struct{}

func (NoopSender) Send(context.Context, string, string, string) error { return ErrNoTransport }

// SMTPSender sends mail through a configured SMTP relay.
type SMTPSender struct {
	cfg config.SMTPConfig
}

// NewSender returns an SMTP sender, or nil when SMTP is not configured.
func NewSender(cfg config.SMTPConfig) *SMTPSender {
	if !cfg.IsSMTPEnabled() {
		return nil
	}
	return &SMTPSender{cfg: cfg}
}

// Send delivers one HTML email.
func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	if s == nil {
		return ErrNoTransport
	}

	msg := mail.NewMsg()
	if err := msg.FromFormat(s.cfg.GetEmailFromName(), s.cfg.GetEmailFromAddress()); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	client, err := mail.NewClient(s.cfg.GetSMTPHost(),
		mail.WithPort(s.cfg.GetSMTPPort()),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.GetSMTPUsername()),
		mail.WithPassword(s.cfg.GetSMTPPassword()),
	)
	if err != nil {
		return err
	}

	return client.DialAndSendWithContext(ctx, msg)
}

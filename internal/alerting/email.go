package alerting

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
	"github.com/rs/zerolog"
)

// EmailOptions configure the SMTP digest channel.
type EmailOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// EmailNotifier mails digests to a fixed recipient list.
type EmailNotifier struct {
	opts   EmailOptions
	send   func(e *email.Email, addr string, auth smtp.Auth) error
	logger zerolog.Logger
}

// NewEmailNotifier constructs an SMTP channel.
func NewEmailNotifier(opts EmailOptions, logger zerolog.Logger) *EmailNotifier {
	return &EmailNotifier{
		opts: opts,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
		logger: logger.With().Str("component", "digest_email").Logger(),
	}
}

// Notify sends the rendered digest. SMTP has no context support, so ctx is
// only checked before sending.
func (n *EmailNotifier) Notify(ctx context.Context, digest Digest) error {
	if len(n.opts.To) == 0 {
		return fmt.Errorf("email digest has no recipients")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e := email.NewEmail()
	e.From = n.opts.From
	e.To = n.opts.To
	e.Subject = fmt.Sprintf("USD/LBP rate digest %s", digest.GeneratedAt.Format("2006-01-02 15:04"))
	e.Text = []byte(RenderDigest(digest))

	addr := fmt.Sprintf("%s:%d", n.opts.Host, n.opts.Port)
	var auth smtp.Auth
	if n.opts.Username != "" {
		auth = smtp.PlainAuth("", n.opts.Username, n.opts.Password, n.opts.Host)
	}
	if err := n.send(e, addr, auth); err != nil {
		return fmt.Errorf("send digest email: %w", err)
	}

	n.logger.Info().Strs("to", n.opts.To).Msg("digest sent (email)")
	return nil
}

var _ Notifier = (*EmailNotifier)(nil)

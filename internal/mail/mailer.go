// AngelaMos | 2026
// mailer.go

package mail

import (
	"context"
	"fmt"
	"log/slog"

	"gopkg.in/gomail.v2"

	"github.com/carterperez-dev/flashdeck/internal/config"
)

type Message struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New returns an SMTP mailer, or a mailer that only logs when mail is
// disabled.
func New(cfg config.MailConfig, logger *slog.Logger) Mailer {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.Enabled {
		return &noopMailer{logger: logger}
	}

	return &SMTPMailer{
		from:   cfg.From,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		logger: logger,
	}
}

type SMTPMailer struct {
	from   string
	dialer *gomail.Dialer
	logger *slog.Logger
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := m.dialer.DialAndSend(buildMessage(m.from, msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}

	m.logger.Debug("mail sent", "to", msg.To, "subject", msg.Subject)
	return nil
}

func buildMessage(from string, msg Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)

	switch {
	case msg.TextBody != "" && msg.HTMLBody != "":
		m.SetBody("text/plain", msg.TextBody)
		m.AddAlternative("text/html", msg.HTMLBody)
	case msg.HTMLBody != "":
		m.SetBody("text/html", msg.HTMLBody)
	default:
		m.SetBody("text/plain", msg.TextBody)
	}

	return m
}

type noopMailer struct {
	logger *slog.Logger
}

func (n *noopMailer) Send(_ context.Context, msg Message) error {
	n.logger.Debug("mail disabled, dropping message", "to", msg.To, "subject", msg.Subject)
	return nil
}

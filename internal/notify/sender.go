package notify

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"workspace-provision/internal/apperr"
	"workspace-provision/internal/config"
	"workspace-provision/internal/domain"
)

// ErrMissingTransportCredentials is wrapped when the relay user or password
// is not configured.
var ErrMissingTransportCredentials = errors.New("missing mail transport credentials (EMAIL_SMTP_USER / EMAIL_SMTP_PASS)")

type Sender interface {
	Send(ctx context.Context, n domain.Notification) error
}

// SMTPSender renders the account notification and delivers it to exactly one
// recipient.
type SMTPSender struct {
	User         string
	Pass         string
	From         string
	Subject      string
	TemplatePath string
	LoginURL     string
	Transport    Transport
	Logger       zerolog.Logger

	now func() time.Time
}

func (s *SMTPSender) Send(ctx context.Context, n domain.Notification) error {
	if s.User == "" || s.Pass == "" {
		return apperr.Notification("cannot send notification", ErrMissingTransportCredentials)
	}

	tmpl, err := LoadTemplate(s.TemplatePath)
	if err != nil {
		return err
	}
	body, err := tmpl.Render(n, s.LoginURL)
	if err != nil {
		return err
	}

	from := s.From
	if from == "" {
		from = s.User
	}
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	msg, err := BuildMessage(from, n.To, s.Subject, body, now())
	if err != nil {
		return apperr.Notification("build notification message", err)
	}

	s.Logger.Info().Str("to", n.To).Msg("sending account notification")
	if err := s.Transport.Deliver(ctx, from, []string{n.To}, msg); err != nil {
		return apperr.Notification("failed to send email via SMTP", err)
	}
	s.Logger.Info().Str("to", n.To).Msg("notification sent")
	return nil
}

// LogSender renders the notification and logs it instead of sending.
type LogSender struct {
	TemplatePath string
	LoginURL     string
	Logger       zerolog.Logger
}

func (s LogSender) Send(_ context.Context, n domain.Notification) error {
	tmpl, err := LoadTemplate(s.TemplatePath)
	if err != nil {
		return err
	}
	body, err := tmpl.Render(n, s.LoginURL)
	if err != nil {
		return err
	}
	s.Logger.Info().
		Str("to", n.To).
		Str("username", n.Username).
		Int("body_bytes", len(body)).
		Msg("[DRY-RUN] would send notification")
	return nil
}

// NewSender returns a LogSender for dry runs and an SMTP sender otherwise.
func NewSender(cfg config.Config, dryRun bool, logger zerolog.Logger) Sender {
	if dryRun {
		return LogSender{TemplatePath: cfg.EmailTemplate, LoginURL: cfg.LoginURL, Logger: logger}
	}
	return &SMTPSender{
		User:         cfg.SMTPUser,
		Pass:         cfg.SMTPPass,
		From:         cfg.EmailFrom,
		Subject:      cfg.EmailSubject,
		TemplatePath: cfg.EmailTemplate,
		LoginURL:     cfg.LoginURL,
		Transport: SMTPTransport{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			StartTLS: cfg.SMTPStartTLS,
			User:     cfg.SMTPUser,
			Pass:     cfg.SMTPPass,
		},
		Logger: logger,
	}
}

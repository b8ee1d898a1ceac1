// Package mail delivers transactional email.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// Sender delivers a single HTML message and returns once the server has
// accepted or refused it.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPSender struct {
	client *gomail.Client
	from   string
}

func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	opts := []gomail.Option{
		gomail.WithTimeout(15 * time.Second),
	}
	if cfg.Port == 465 {
		opts = append(opts, gomail.WithSSL())
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSOpportunistic))
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}
	opts = append(opts, gomail.WithPort(cfg.Port))
	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPSender{client: client, from: cfg.From}, nil
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	m := gomail.NewMsg()
	if err := m.From(s.from); err != nil {
		return fmt.Errorf("from address: %w", err)
	}
	if err := m.To(to); err != nil {
		return fmt.Errorf("to address: %w", err)
	}
	m.Subject(subject)
	m.SetBodyString(gomail.TypeTextHTML, htmlBody)
	return s.client.DialAndSendWithContext(ctx, m)
}

// LogSender drops messages after logging their envelope. It is used when no
// SMTP server is configured.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) Send(_ context.Context, to, subject, _ string) error {
	s.Logger.Warn("mail delivery disabled, message dropped", "to", to, "subject", subject)
	return nil
}

var resetTmpl = template.Must(template.New("reset").Parse(`<div style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #0056b3;">Password Reset Request</h2>
  <p>Hello,</p>
  <p>You recently requested to reset the password for your account. Click the button below to proceed.</p>
  <p style="text-align: center; margin: 30px 0;">
    <a href="{{.Link}}" style="background-color: #007bff; color: #ffffff; padding: 12px 25px; border-radius: 5px; text-decoration: none; font-weight: bold;">Reset Your Password</a>
  </p>
  <p>If you did not request a password reset, please ignore this email.</p>
  <p>This password reset link is valid for {{.Validity}}.</p>
</div>`))

// PasswordResetMessage renders the subject and HTML body for a reset link.
func PasswordResetMessage(link string, validity time.Duration) (string, string, error) {
	var buf bytes.Buffer
	err := resetTmpl.Execute(&buf, struct {
		Link     string
		Validity string
	}{link, humanDuration(validity)})
	if err != nil {
		return "", "", err
	}
	return "Password Reset Request", buf.String(), nil
}

func humanDuration(d time.Duration) string {
	switch {
	case d == time.Hour:
		return "1 hour"
	case d%time.Hour == 0:
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	default:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	}
}

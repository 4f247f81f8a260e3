package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-accounts/app/service"
	"github.com/vibast-solutions/ms-go-accounts/config"

	"github.com/sirupsen/logrus"
	"github.com/wneessen/go-mail"
)

const (
	verificationSubject = "Verify your email address"
	resetSubject        = "Reset your password"

	defaultSendTimeout = 10 * time.Second
)

var errHeaderLineBreak = errors.New("mail header contains a line break")

// sender is implemented by *mail.Client.
type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// links builds the URLs placed in outgoing mail. Verification links point at
// this service, which redirects to the frontend; reset links go straight to
// the frontend form.
type links struct {
	publicURL   string
	frontendURL string
}

func (l links) verification(token string) string {
	return l.publicURL + "/verify?token=" + url.QueryEscape(token)
}

func (l links) reset(token string) string {
	return l.frontendURL + "/reset-password?token=" + url.QueryEscape(token)
}

// New returns an SMTP mailer when SMTP_HOST is set and a log-only mailer
// otherwise.
func New(cfg *config.Config) (service.Mailer, error) {
	if cfg.Mail.SMTPHost == "" {
		logrus.Warn("SMTP_HOST not set, outgoing mail will only be logged")
		return NewLogMailer(), nil
	}
	m, err := NewSMTPMailer(cfg.Mail, cfg.PublicURL, cfg.FrontendURL)
	if err != nil {
		return nil, err
	}
	return m, nil
}

type SMTPMailer struct {
	client  sender
	from    string
	timeout time.Duration
	links   links
}

func NewSMTPMailer(cfg config.MailConfig, publicURL, frontendURL string) (*SMTPMailer, error) {
	port, err := strconv.Atoi(cfg.SMTPPort)
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT %q: %w", cfg.SMTPPort, err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}

	opts := []mail.Option{
		mail.WithPort(port),
		mail.WithTimeout(timeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.SMTPUsername != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.SMTPUsername),
			mail.WithPassword(cfg.SMTPPassword),
		)
	}
	client, err := mail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	return &SMTPMailer{
		client:  client,
		from:    cfg.From,
		timeout: timeout,
		links:   links{publicURL: publicURL, frontendURL: frontendURL},
	}, nil
}

func (m *SMTPMailer) SendVerificationEmail(ctx context.Context, to, token string) error {
	body := "Confirm your email address by opening the link below. It expires in one hour.\r\n\r\n" +
		m.links.verification(token) + "\r\n"
	return m.deliver(ctx, to, verificationSubject, body)
}

func (m *SMTPMailer) SendPasswordResetEmail(ctx context.Context, to, token string) error {
	body := "Someone asked to reset the password of this account. If it was you, open the link below. It expires in one hour.\r\n\r\n" +
		m.links.reset(token) + "\r\n"
	return m.deliver(ctx, to, resetSubject, body)
}

// deliver returns once the message is handed over, the timeout elapses or ctx
// is done, whichever comes first. A stalled server never holds the caller.
func (m *SMTPMailer) deliver(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := buildMessage(m.from, to, subject, body)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- m.client.DialAndSendWithContext(ctx, msg)
	}()

	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"to":      service.RedactEmail(to),
		"subject": subject,
	}).Debug("Mail sent")
	return nil
}

func buildMessage(from, to, subject, body string) (*mail.Msg, error) {
	for _, header := range []string{from, to, subject} {
		if strings.ContainsAny(header, "\r\n") {
			return nil, errHeaderLineBreak
		}
	}

	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}

// LogMailer only records that a message would have been sent. The token is
// never logged.
type LogMailer struct{}

func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

func (m *LogMailer) SendVerificationEmail(_ context.Context, to, _ string) error {
	logSkipped(to, "verification")
	return nil
}

func (m *LogMailer) SendPasswordResetEmail(_ context.Context, to, _ string) error {
	logSkipped(to, "password_reset")
	return nil
}

func logSkipped(to, kind string) {
	logrus.WithFields(logrus.Fields{
		"to":   service.RedactEmail(to),
		"kind": kind,
	}).Info("Mail delivery skipped")
}

package mail

import (
	"context"
	"errors"
	"fmt"

	gomail "github.com/wneessen/go-mail"
)

// ErrDelivery is returned when the SMTP relay rejects or fails a send.
// Callers must treat it as service unavailability, not as a silent success.
var ErrDelivery = errors.New("mail delivery failed")

// Mailer dispatches transactional mail out-of-band
type Mailer interface {
	Send(ctx context.Context, to, subject, bodyHTML string) error
}

// SMTPMailer sends through an authenticated SMTP relay
type SMTPMailer struct {
	client *gomail.Client
	from   string
}

// NewSMTPMailer creates a mailer against the configured relay.
// Port 465 uses implicit TLS, matching the institute relay.
func NewSMTPMailer(host string, port int, username, password, from string) (*SMTPMailer, error) {
	opts := []gomail.Option{
		gomail.WithPort(port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(username),
		gomail.WithPassword(password),
	}
	if port == 465 {
		opts = append(opts, gomail.WithSSL())
	}

	client, err := gomail.NewClient(host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	return &SMTPMailer{client: client, from: from}, nil
}

// Send delivers one HTML mail synchronously
func (m *SMTPMailer) Send(ctx context.Context, to, subject, bodyHTML string) error {
	msg := gomail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, bodyHTML)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	return nil
}

package bootstrap

import (
	"context"
	"fmt"
	"log"

	"github.com/bsw-iitd/auth-server/internal/config"
	"github.com/bsw-iitd/auth-server/internal/mail"
)

// initializeMailer creates the SMTP mailer, or a logging stand-in when no
// relay credentials are configured (development without mail access).
func initializeMailer(cfg *config.Config) (mail.Mailer, error) {
	if cfg.MailUser == "" {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("MAIL_USER is required in production")
		}
		log.Println("[Bootstrap] no MAIL_USER configured, OTP mail will be logged instead of sent")
		return logMailer{}, nil
	}

	mailer, err := mail.NewSMTPMailer(
		cfg.MailHost,
		cfg.MailPort,
		cfg.MailUser,
		cfg.MailPass,
		cfg.MailFrom,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mailer: %w", err)
	}
	return mailer, nil
}

// logMailer prints outbound mail instead of delivering it
type logMailer struct{}

func (logMailer) Send(_ context.Context, to, subject, _ string) error {
	log.Printf("[Mail] (dev) would send %q to %s", subject, to)
	return nil
}

package mailer

import (
	"fmt"
	"net/mail"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-report-card/pkg/config"
)

// New picks the sender for the configured provider.
func New(cfg config.MailConfig, logger *zap.Logger) (Sender, error) {
	from := mail.Address{Name: cfg.FromName, Address: cfg.From}

	switch cfg.Provider {
	case "", config.MailProviderConsole:
		return NewConsoleSender(from, nil, logger), nil
	case config.MailProviderSMTP:
		if cfg.From == "" {
			return nil, fmt.Errorf("MAIL_FROM is required for the smtp provider")
		}
		return NewSMTPSender(cfg.SMTP, from, logger), nil
	case config.MailProviderSendGrid:
		if cfg.SendGridAPIKey == "" {
			return nil, fmt.Errorf("SENDGRID_API_KEY is required for the sendgrid provider")
		}
		return NewSendGridSender(cfg.SendGridAPIKey, from, logger), nil
	}
	return nil, fmt.Errorf("unknown mail provider %q", cfg.Provider)
}

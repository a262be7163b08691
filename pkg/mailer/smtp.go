package mailer

import (
	"context"
	"fmt"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-report-card/pkg/config"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender delivers mail through an SMTP relay using STARTTLS when offered.
type SMTPSender struct {
	addr     string
	auth     smtp.Auth
	from     mail.Address
	sendMail sendMailFunc
	logger   *zap.Logger
}

// NewSMTPSender builds a sender for the configured relay. Authentication is
// skipped when no username is configured.
func NewSMTPSender(cfg config.SMTPConfig, from mail.Address, logger *zap.Logger) *SMTPSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPSender{
		addr:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		auth:     auth,
		from:     from,
		sendMail: smtp.SendMail,
		logger:   logger,
	}
}

// Send implements Sender.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !msg.HasRecipients() {
		return ErrNoRecipients
	}
	if msg.From.Address == "" {
		msg.From = s.from
	}
	raw, err := msg.Bytes()
	if err != nil {
		return err
	}
	if err := s.sendMail(s.addr, s.auth, msg.From.Address, msg.Recipients(), raw); err != nil {
		return fmt.Errorf("smtp send via %s: %w", s.addr, err)
	}
	s.logger.Info("email sent", zap.String("provider", config.MailProviderSMTP), zap.Strings("to", msg.Recipients()))
	return nil
}

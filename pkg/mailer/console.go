package mailer

import (
	"context"
	"io"
	"net/mail"
	"os"
	"sync"

	"go.uber.org/zap"
)

// ConsoleSender writes composed messages to a writer instead of sending them.
type ConsoleSender struct {
	from   mail.Address
	out    io.Writer
	logger *zap.Logger
	mu     sync.Mutex
}

// NewConsoleSender builds a console sender. A nil writer means stderr.
func NewConsoleSender(from mail.Address, out io.Writer, logger *zap.Logger) *ConsoleSender {
	if out == nil {
		out = os.Stderr
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleSender{from: from, out: out, logger: logger}
}

// Send implements Sender.
func (s *ConsoleSender) Send(ctx context.Context, msg Message) error {
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

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.out.Write(raw); err != nil {
		return err
	}
	s.logger.Info("email written to console", zap.Strings("to", msg.Recipients()), zap.String("subject", msg.Subject))
	return nil
}

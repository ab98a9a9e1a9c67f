// Package logsender provides a MessageSender that only logs, for development and dry runs.
package logsender

import (
	"context"
	"log/slog"

	"github.com/messagemind/automaton/pkg/domain"
)

// Sender writes every message to a logger instead of delivering it.
type Sender struct {
	logger *slog.Logger
}

// New creates a Sender logging at info level on logger.
func New(logger *slog.Logger) *Sender {
	return &Sender{logger: logger}
}

func (s *Sender) Send(ctx context.Context, msg domain.Message) error {
	s.logger.InfoContext(ctx, "message not delivered (log sender)",
		"to", msg.To,
		"subject", msg.Subject,
		"text", msg.Text,
	)
	return nil
}

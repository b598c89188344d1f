package notifier

import (
	"context"
	"log/slog"
)

var _ Mailer = (*LogMailer)(nil)

// LogMailer writes emails to the logger instead of sending them.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send never fails.
func (m *LogMailer) Send(_ context.Context, e Email) error {
	m.logger.Info("email", "to", e.To, "subject", e.Subject, "body", e.Body)
	return nil
}

// Package notify delivers confirmation messages to submitters.
package notify

import (
	"context"
	"log/slog"
)

// Notifier sends a plain-text message to one recipient.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogNotifier writes messages to the log instead of sending them.
// It is used when no SMTP host is configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier. A nil logger uses slog.Default.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// Send logs the message and never fails.
func (n *LogNotifier) Send(_ context.Context, to, subject, body string) error {
	n.logger.Info("Email not sent, SMTP disabled", "to", to, "subject", subject, "body", body)
	return nil
}

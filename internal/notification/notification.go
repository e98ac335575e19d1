package notification

import (
	"context"
	"log/slog"
)

const (
	// KindMutualMatch indicates both parties of a pair signaled each other.
	KindMutualMatch = "mutual_match"
)

// Message describes a committed notification handed to delivery.
type Message struct {
	Kind        string
	Destination string
	Context     string
	ID          string
}

// Notifier delivers committed notifications to downstream systems. Delivery
// runs after the match transaction commits and never affects its outcome.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier is a stub implementation that writes notifications to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		"kind", message.Kind,
		"notification_id", message.ID,
		"destination", message.Destination,
		"context", message.Context,
	)
	return nil
}

package transport

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// LogTransport writes messages to a logger instead of sending them.
type LogTransport struct {
	logger *slog.Logger
}

// NewLogTransport returns a transport logging to logger, or slog.Default when nil.
func NewLogTransport(logger *slog.Logger) *LogTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogTransport{logger: logger}
}

// Deliver implements Transport.
func (t *LogTransport) Deliver(ctx context.Context, target string, msg Message) (Receipt, error) {
	if err := validate(target, msg); err != nil {
		return Receipt{}, err
	}

	id := uuid.NewString()
	t.logger.InfoContext(ctx, "notification delivered",
		slog.String("provider", "log"),
		slog.String("message_id", id),
		slog.String("target", target),
		slog.String("subject", msg.Subject),
		slog.String("tag", msg.Tag),
		slog.Int("body_bytes", len(msg.Body)))

	return Receipt{Provider: "log", MessageID: id}, nil
}

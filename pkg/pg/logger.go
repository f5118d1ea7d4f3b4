package pg

import "context"

// Logger routes goose migration output to the application logger. *slog.Logger satisfies it.
type Logger interface {
	InfoContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}

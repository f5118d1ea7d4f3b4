package logger

import (
	"context"
	"log/slog"
)

type jobIDKey struct{}

// ContextWithJobID returns a copy of ctx carrying the id of the job being processed.
func ContextWithJobID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, jobIDKey{}, id)
}

// JobIDFromContext returns the job id stored by ContextWithJobID.
func JobIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(jobIDKey{}).(string)
	return id, ok && id != ""
}

// WithJobContext adds "job_id" to every record logged with a context from ContextWithJobID.
func WithJobContext() Option {
	return WithContextExtractors(func(ctx context.Context) (slog.Attr, bool) {
		id, ok := JobIDFromContext(ctx)
		if !ok {
			return slog.Attr{}, false
		}
		return JobID(id), true
	})
}

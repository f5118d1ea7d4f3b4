package logger

import (
	"log/slog"
	"strconv"
	"time"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Errors groups multiple non-nil errors under the key "errors".
// If all errors are nil, it returns an empty Attr.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// JobID records the job identifier under the key "job_id".
// If id is nil, it returns an empty Attr.
func JobID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("job_id", id)
}

// JobType records the job type under the key "job_type".
func JobType[T ~string](jobType T) slog.Attr {
	return slog.String("job_type", string(jobType))
}

// WorkerID records the worker identifier under the key "worker_id".
func WorkerID(id string) slog.Attr {
	return slog.String("worker_id", id)
}

// Attempt records the 1-based attempt number and its budget under the key "attempt".
func Attempt(n, maxAttempts int) slog.Attr {
	return Group("attempt", slog.Int("n", n), slog.Int("max", maxAttempts))
}

// Target records the delivery destination under the key "target".
func Target(target string) slog.Attr {
	return slog.String("target", target)
}

// Provider records the delivery provider under the key "provider".
func Provider(name string) slog.Attr {
	return slog.String("provider", name)
}

// MessageID records the provider message identifier under the key "message_id".
// If id is nil, it returns an empty Attr.
func MessageID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("message_id", id)
}

// RequestID records the request identifier under the key "request_id".
// If id is nil, it returns an empty Attr.
func RequestID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("request_id", id)
}

// Duration records a duration under the key "duration".
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

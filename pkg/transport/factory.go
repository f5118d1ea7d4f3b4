package transport

import (
	"log/slog"
)

// New builds the transport selected by cfg.Driver and applies the configured
// circuit breaker and rate limit. The rate limit wraps the breaker so waiting
// callers do not count as provider failures.
func New(cfg Config, logger *slog.Logger) (Transport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	var (
		t   Transport
		err error
	)
	switch cfg.Driver {
	case DriverLog:
		t = NewLogTransport(logger)
	case DriverFile:
		t = NewFileTransport(cfg.FileDir)
	case DriverPostmark:
		t, err = NewPostmarkTransport(cfg.Postmark)
	case DriverWebhook:
		t, err = NewWebhookTransport(cfg.Webhook)
	}
	if err != nil {
		return nil, err
	}

	if cfg.CircuitFailures > 0 {
		t = WithCircuitBreaker(t, NewCircuitBreaker(cfg.CircuitFailures, 0, cfg.CircuitRecovery))
	}
	if cfg.RateLimit > 0 {
		t = WithRateLimit(t, cfg.RateLimit, cfg.RateBurst)
	}

	logger.Info("notification transport ready",
		slog.String("driver", cfg.Driver),
		slog.Float64("rate_limit", cfg.RateLimit),
		slog.Int("circuit_failures", cfg.CircuitFailures))

	return t, nil
}

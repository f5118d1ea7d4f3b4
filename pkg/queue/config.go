package queue

import (
	"fmt"
	"time"
)

// Config holds the configuration for the job queue
type Config struct {
	MaxAttempts        int           `env:"QUEUE_MAX_ATTEMPTS" envDefault:"3"`
	BackoffBase        time.Duration `env:"QUEUE_BACKOFF_BASE" envDefault:"5s"`
	BackoffMax         time.Duration `env:"QUEUE_BACKOFF_MAX" envDefault:"10m"`
	PollInterval       time.Duration `env:"QUEUE_POLL_INTERVAL" envDefault:"1s"`
	LeaseTimeout       time.Duration `env:"QUEUE_LEASE_TIMEOUT" envDefault:"5m"`
	Concurrency        int           `env:"QUEUE_CONCURRENCY" envDefault:"4"`
	ShutdownTimeout    time.Duration `env:"QUEUE_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	RetentionSchedule  string        `env:"QUEUE_RETENTION_SCHEDULE" envDefault:"@hourly"`
	CompletedRetention time.Duration `env:"QUEUE_COMPLETED_RETENTION" envDefault:"72h"`
}

// Validate rejects values that would make the worker misbehave at runtime.
func (c Config) Validate() error {
	switch {
	case c.MaxAttempts < 1 || c.MaxAttempts > MaxAttemptsLimit:
		return fmt.Errorf("%w: QUEUE_MAX_ATTEMPTS must be between 1 and %d", ErrInvalidConfig, MaxAttemptsLimit)
	case c.BackoffBase <= 0:
		return fmt.Errorf("%w: QUEUE_BACKOFF_BASE must be positive", ErrInvalidConfig)
	case c.BackoffMax < c.BackoffBase:
		return fmt.Errorf("%w: QUEUE_BACKOFF_MAX must not be lower than QUEUE_BACKOFF_BASE", ErrInvalidConfig)
	case c.PollInterval <= 0:
		return fmt.Errorf("%w: QUEUE_POLL_INTERVAL must be positive", ErrInvalidConfig)
	case c.LeaseTimeout <= 0:
		return fmt.Errorf("%w: QUEUE_LEASE_TIMEOUT must be positive", ErrInvalidConfig)
	case c.Concurrency < 1:
		return fmt.Errorf("%w: QUEUE_CONCURRENCY must be at least 1", ErrInvalidConfig)
	case c.CompletedRetention < 0:
		return fmt.Errorf("%w: QUEUE_COMPLETED_RETENTION must not be negative", ErrInvalidConfig)
	}
	return nil
}

// RetryPolicy builds the retry policy described by the configuration.
func (c Config) RetryPolicy() RetryPolicy {
	return RetryPolicy{
		Backoff: ExponentialBackoff{
			Base:         c.BackoffBase,
			Max:          c.BackoffMax,
			JitterFactor: 0.1,
		},
	}
}

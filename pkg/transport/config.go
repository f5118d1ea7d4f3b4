package transport

import (
	"fmt"
	"time"
)

// Driver names accepted by NOTIFY_TRANSPORT.
const (
	DriverLog      = "log"
	DriverFile     = "file"
	DriverPostmark = "postmark"
	DriverWebhook  = "webhook"
)

// Config selects and configures the delivery transport.
type Config struct {
	Driver  string `env:"NOTIFY_TRANSPORT" envDefault:"log"`
	FileDir string `env:"NOTIFY_FILE_DIR" envDefault:"./tmp/emails"`

	// RateLimit is deliveries per second; zero disables limiting.
	RateLimit float64 `env:"NOTIFY_RATE_LIMIT" envDefault:"0"`
	RateBurst int     `env:"NOTIFY_RATE_BURST" envDefault:"1"`

	// CircuitFailures is the consecutive failure count that opens the breaker; zero disables it.
	CircuitFailures int           `env:"NOTIFY_CIRCUIT_FAILURES" envDefault:"0"`
	CircuitRecovery time.Duration `env:"NOTIFY_CIRCUIT_RECOVERY" envDefault:"30s"`

	Postmark PostmarkConfig
	Webhook  WebhookConfig
}

// Validate checks the selected driver and its settings.
func (c Config) Validate() error {
	if c.RateLimit < 0 {
		return fmt.Errorf("%w: NOTIFY_RATE_LIMIT must not be negative", ErrInvalidConfig)
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		return fmt.Errorf("%w: NOTIFY_RATE_BURST must be at least 1", ErrInvalidConfig)
	}
	if c.CircuitFailures < 0 {
		return fmt.Errorf("%w: NOTIFY_CIRCUIT_FAILURES must not be negative", ErrInvalidConfig)
	}
	if c.CircuitFailures > 0 && c.CircuitRecovery <= 0 {
		return fmt.Errorf("%w: NOTIFY_CIRCUIT_RECOVERY must be positive", ErrInvalidConfig)
	}

	switch c.Driver {
	case DriverLog:
		return nil
	case DriverFile:
		if c.FileDir == "" {
			return fmt.Errorf("%w: NOTIFY_FILE_DIR is required", ErrInvalidConfig)
		}
		return nil
	case DriverPostmark:
		return c.Postmark.Validate()
	case DriverWebhook:
		return c.Webhook.Validate()
	}
	return fmt.Errorf("%w: %q", ErrUnknownTransport, c.Driver)
}

package notify

import (
	"errors"
	"time"
)

// Config holds the render and delivery settings.
type Config struct {
	DeliveryTimeout time.Duration `env:"NOTIFY_DELIVERY_TIMEOUT" envDefault:"10s"`
	ProductName     string        `env:"NOTIFY_PRODUCT_NAME" envDefault:"Schedkit"`
}

// Validate checks the delivery timeout.
func (c Config) Validate() error {
	if c.DeliveryTimeout <= 0 {
		return errors.New("NOTIFY_DELIVERY_TIMEOUT must be positive")
	}
	return nil
}

// PipelineOptions turns the config into pipeline options.
func (c Config) PipelineOptions() []PipelineOption {
	return []PipelineOption{
		WithDeliveryTimeout(c.DeliveryTimeout),
		WithRenderer(NewRenderer(c.ProductName)),
	}
}

package app

import (
	"errors"
	"fmt"
	"slices"

	"github.com/dmitrymomot/schedkit/pkg/config"
	"github.com/dmitrymomot/schedkit/pkg/httpserver"
	"github.com/dmitrymomot/schedkit/pkg/logger"
	"github.com/dmitrymomot/schedkit/pkg/notify"
	"github.com/dmitrymomot/schedkit/pkg/queue"
	"github.com/dmitrymomot/schedkit/pkg/transport"
)

// Broker drivers selectable with BROKER_DRIVER.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

var drivers = []string{DriverMemory, DriverRedis, DriverPostgres, DriverMongo}

// Config is the process configuration. Connection settings of the selected
// broker are loaded separately so unused drivers need no environment.
// The memory broker is only accepted with APP_ENV=development: it loses jobs on
// restart and cannot be reached by producers in other processes.
type Config struct {
	Logger    logger.Config
	Broker    string `env:"BROKER_DRIVER" envDefault:"memory"`
	Queue     queue.Config
	Transport transport.Config
	Notify    notify.Config
	Admin     httpserver.Config
}

// Validate checks every section and the constraints between them.
func (c Config) Validate() error {
	var errs []error
	if !slices.Contains(drivers, c.Broker) {
		errs = append(errs, fmt.Errorf("%w: BROKER_DRIVER %q", ErrUnknownDriver, c.Broker))
	}
	if c.Broker == DriverMemory && c.Logger.Env != logger.EnvDevelopment {
		errs = append(errs, fmt.Errorf("%w: BROKER_DRIVER %q with APP_ENV %q",
			ErrVolatileBroker, c.Broker, c.Logger.Env))
	}
	for _, v := range []interface{ Validate() error }{c.Logger, c.Queue, c.Transport, c.Notify} {
		if err := v.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	// A lease shorter than the delivery timeout lets a second worker reclaim a
	// job that is still being delivered.
	if c.Queue.LeaseTimeout <= c.Notify.DeliveryTimeout {
		errs = append(errs, fmt.Errorf("QUEUE_LEASE_TIMEOUT (%s) must exceed NOTIFY_DELIVERY_TIMEOUT (%s)",
			c.Queue.LeaseTimeout, c.Notify.DeliveryTimeout))
	}
	return errors.Join(errs...)
}

// LoadConfig reads Config from the environment and the .env file, then validates it.
func LoadConfig() (Config, error) {
	var cfg Config
	err := config.Load(&cfg)
	return cfg, err
}

package httpserver

import "time"

// Config holds the admin HTTP server settings.
type Config struct {
	Addr            string        `env:"ADMIN_ADDR" envDefault:":8090"`
	ReadTimeout     time.Duration `env:"ADMIN_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"ADMIN_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout     time.Duration `env:"ADMIN_IDLE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"ADMIN_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// NewFromConfig creates a Server from cfg. Zero fields keep the defaults; opts are applied last.
func NewFromConfig(cfg Config, opts ...Option) *Server {
	base := []Option{
		WithAddr(cfg.Addr),
		WithTimeouts(cfg.ReadTimeout, cfg.WriteTimeout, cfg.IdleTimeout),
		WithShutdownTimeout(cfg.ShutdownTimeout),
	}
	return New(append(base, opts...)...)
}

package httpserver

import (
	"log/slog"
	"time"
)

// Option configures the HTTP server. Zero values keep the current setting, so
// options can be fed straight from an env-loaded Config.
type Option func(*config)

// WithAddr sets the listen address. Use port 0 to let the OS pick one; Addr
// reports the bound address once Run is listening.
func WithAddr(addr string) Option {
	return func(c *config) {
		if addr != "" {
			c.addr = addr
		}
	}
}

// WithTimeouts sets the read, write and idle timeouts of the underlying
// http.Server. A non-positive value leaves that timeout unchanged.
func WithTimeouts(read, write, idle time.Duration) Option {
	return func(c *config) {
		if read > 0 {
			c.readTimeout = read
		}
		if write > 0 {
			c.writeTimeout = write
		}
		if idle > 0 {
			c.idleTimeout = idle
		}
	}
}

// WithShutdownTimeout bounds how long Shutdown waits for active requests.
func WithShutdownTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.shutdownTimeout = d
		}
	}
}

// WithLogger sets the server logger. Logs are discarded by default.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithListenHook registers fn to run with the bound address as soon as the
// listener is open. The daemon uses it to report readiness.
func WithListenHook(fn func(addr string)) Option {
	return func(c *config) {
		if fn != nil {
			c.listenHooks = append(c.listenHooks, fn)
		}
	}
}

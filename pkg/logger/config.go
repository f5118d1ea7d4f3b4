package logger

import (
	"fmt"
	"log/slog"
	"strings"
)

// Config holds the logging settings loaded from the environment.
type Config struct {
	Env     string `env:"APP_ENV" envDefault:"development"`
	Service string `env:"APP_NAME" envDefault:"notifyd"`
	// Level overrides the environment default when set: debug, info, warn or error.
	Level string `env:"LOG_LEVEL"`
}

// Validate checks the level name.
func (c Config) Validate() error {
	_, err := c.level()
	return err
}

func (c Config) level() (slog.Level, error) {
	var l slog.Level
	if c.Level == "" {
		return l, nil
	}
	if err := l.UnmarshalText([]byte(strings.ToUpper(c.Level))); err != nil {
		return l, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.Level, err)
	}
	return l, nil
}

// FromConfig builds a logger for cfg with job id extraction enabled.
// Extra options are applied last.
func FromConfig(cfg Config, opts ...Option) *slog.Logger {
	base := []Option{WithEnvironment(cfg.Env, cfg.Service), WithJobContext()}
	if l, err := cfg.level(); err == nil && cfg.Level != "" {
		base = append(base, WithLevel(l))
	}
	return New(append(base, opts...)...)
}

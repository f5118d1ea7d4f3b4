// Package config loads typed configuration from the environment.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11:
//
//   - LoadEnv reads one or more .env files; Load reads the default .env once.
//   - Load parses the environment into a struct using `env` tags and caches the
//     result per type, so each config struct is parsed once per process.
//   - A struct implementing Validator is checked after parsing; an invalid
//     value is never cached and Load returns ErrInvalidConfig.
//
// # Usage
//
//	type QueueConfig struct {
//	    MaxAttempts int           `env:"QUEUE_MAX_ATTEMPTS" envDefault:"3"`
//	    BackoffBase time.Duration `env:"QUEUE_BACKOFF_BASE" envDefault:"5s"`
//	}
//
//	func (c QueueConfig) Validate() error { ... }
//
//	var cfg QueueConfig
//	if err := config.Load(&cfg); err != nil {
//	    log.Fatalf("config: %v", err)
//	}
//
// Processes must refuse to start on a Load error rather than fail jobs later.
//
// # Errors
//
//   - ErrParsingConfig: env vars could not be parsed into the struct.
//   - ErrInvalidConfig: Validate rejected the parsed value.
//   - ErrLoadingEnvFile: an explicit .env file could not be read.
//   - ErrConfigNotLoaded: an earlier load of the type failed.
//   - ErrNilPointer: nil pointer passed to Load or MustLoad.
//
// ResetCache and ForceReloadConfig exist for tests that change the environment.
package config

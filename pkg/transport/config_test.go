package transport_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/schedkit/pkg/transport"
)

func TestConfig_Defaults(t *testing.T) {
	var cfg transport.Config
	require.NoError(t, env.Parse(&cfg))

	assert.Equal(t, transport.DriverLog, cfg.Driver)
	assert.Equal(t, "./tmp/emails", cfg.FileDir)
	assert.Zero(t, cfg.RateLimit)
	assert.Equal(t, 1, cfg.RateBurst)
	assert.Zero(t, cfg.CircuitFailures)
	assert.Equal(t, 30*time.Second, cfg.CircuitRecovery)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_FromEnv(t *testing.T) {
	t.Setenv("NOTIFY_TRANSPORT", "webhook")
	t.Setenv("WEBHOOK_URL", "https://hooks.example.com/notify")
	t.Setenv("WEBHOOK_SECRET", "whsec")
	t.Setenv("NOTIFY_RATE_LIMIT", "2.5")

	var cfg transport.Config
	require.NoError(t, env.Parse(&cfg))

	assert.Equal(t, transport.DriverWebhook, cfg.Driver)
	assert.Equal(t, "https://hooks.example.com/notify", cfg.Webhook.URL)
	assert.Equal(t, "whsec", cfg.Webhook.Secret)
	assert.InDelta(t, 2.5, cfg.RateLimit, 0.0001)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	base := transport.Config{Driver: transport.DriverLog, RateBurst: 1, CircuitRecovery: time.Second}

	tests := []struct {
		name    string
		mutate  func(*transport.Config)
		wantErr error
	}{
		{"log", func(*transport.Config) {}, nil},
		{"unknown driver", func(c *transport.Config) { c.Driver = "pigeon" }, transport.ErrUnknownTransport},
		{"file without dir", func(c *transport.Config) { c.Driver = transport.DriverFile }, transport.ErrInvalidConfig},
		{"postmark without tokens", func(c *transport.Config) { c.Driver = transport.DriverPostmark }, transport.ErrInvalidConfig},
		{"webhook without url", func(c *transport.Config) { c.Driver = transport.DriverWebhook }, transport.ErrInvalidConfig},
		{"negative rate", func(c *transport.Config) { c.RateLimit = -1 }, transport.ErrInvalidConfig},
		{"rate without burst", func(c *transport.Config) { c.RateLimit = 1; c.RateBurst = 0 }, transport.ErrInvalidConfig},
		{"breaker without recovery", func(c *transport.Config) { c.CircuitFailures = 3; c.CircuitRecovery = 0 }, transport.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("log with decorators", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))

		tr, err := transport.New(transport.Config{
			Driver:          transport.DriverLog,
			RateLimit:       100,
			RateBurst:       10,
			CircuitFailures: 3,
			CircuitRecovery: time.Second,
		}, logger)
		require.NoError(t, err)

		r, err := tr.Deliver(context.Background(), "alice@example.com", testMessage())
		require.NoError(t, err)
		assert.Equal(t, "log", r.Provider)
		assert.Contains(t, buf.String(), "notification transport ready")
	})

	t.Run("file", func(t *testing.T) {
		t.Parallel()

		tr, err := transport.New(transport.Config{Driver: transport.DriverFile, FileDir: t.TempDir()}, nil)
		require.NoError(t, err)
		assert.IsType(t, &transport.FileTransport{}, tr)
	})

	t.Run("invalid", func(t *testing.T) {
		t.Parallel()

		_, err := transport.New(transport.Config{Driver: "smoke-signal"}, nil)
		assert.ErrorIs(t, err, transport.ErrUnknownTransport)
	})
}

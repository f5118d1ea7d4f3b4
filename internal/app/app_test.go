package app_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/schedkit/internal/app"
	"github.com/dmitrymomot/schedkit/pkg/notify"
	"github.com/dmitrymomot/schedkit/pkg/queue"
	"github.com/dmitrymomot/schedkit/pkg/transport"
)

func defaultConfig(t *testing.T) app.Config {
	t.Helper()
	var cfg app.Config
	require.NoError(t, env.Parse(&cfg))
	return cfg
}

func TestConfig_Defaults(t *testing.T) {
	t.Parallel()
	cfg := defaultConfig(t)

	assert.Equal(t, app.DriverMemory, cfg.Broker)
	assert.Equal(t, transport.DriverLog, cfg.Transport.Driver)
	assert.Equal(t, ":8090", cfg.Admin.Addr)
	assert.Equal(t, 3, cfg.Queue.MaxAttempts)
	assert.Equal(t, 10*time.Second, cfg.Notify.DeliveryTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	t.Run("unknown broker", func(t *testing.T) {
		t.Parallel()
		cfg := defaultConfig(t)
		cfg.Broker = "kafka"
		assert.ErrorIs(t, cfg.Validate(), app.ErrUnknownDriver)
	})

	t.Run("memory broker outside development", func(t *testing.T) {
		t.Parallel()
		cfg := defaultConfig(t)
		cfg.Logger.Env = "production"
		assert.ErrorIs(t, cfg.Validate(), app.ErrVolatileBroker)

		cfg.Broker = app.DriverPostgres
		assert.NoError(t, cfg.Validate())
	})

	t.Run("lease shorter than delivery timeout", func(t *testing.T) {
		t.Parallel()
		cfg := defaultConfig(t)
		cfg.Queue.LeaseTimeout = 5 * time.Second
		cfg.Notify.DeliveryTimeout = 10 * time.Second
		assert.ErrorContains(t, cfg.Validate(), "QUEUE_LEASE_TIMEOUT")
	})

	t.Run("collects section errors", func(t *testing.T) {
		t.Parallel()
		cfg := defaultConfig(t)
		cfg.Transport.Driver = "pigeon"
		cfg.Logger.Level = "loud"
		err := cfg.Validate()
		assert.ErrorIs(t, err, transport.ErrUnknownTransport)
		assert.ErrorContains(t, err, "LOG_LEVEL")
	})
}

func TestOpenBroker_UnknownDriver(t *testing.T) {
	t.Parallel()
	_, err := app.OpenBroker(context.Background(), "kafka", slog.New(slog.DiscardHandler))
	assert.ErrorIs(t, err, app.ErrUnknownDriver)
}

func TestOpenBroker_Memory(t *testing.T) {
	t.Parallel()
	b, err := app.OpenBroker(context.Background(), app.DriverMemory, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	assert.IsType(t, &queue.MemoryBroker{}, b.Store)
	assert.Empty(t, b.Checks)
	assert.NoError(t, b.Close(context.Background()))
}

type recorder struct {
	mu   sync.Mutex
	sent []transport.Message
	to   []string
}

func (r *recorder) Deliver(_ context.Context, target string, msg transport.Message) (transport.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	r.to = append(r.to, target)
	return transport.Receipt{Provider: "test", MessageID: msg.IdempotencyKey}, nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func TestApp_DeliversNotification(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig(t)
	cfg.Admin.Addr = "127.0.0.1:0"
	cfg.Queue.PollInterval = 10 * time.Millisecond

	rec := &recorder{}
	log := slog.New(slog.DiscardHandler)
	a, err := app.New(context.Background(), cfg, log, app.WithTransport(rec))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx, func() { close(ready) }) }()
	<-ready

	require.NotEqual(t, "127.0.0.1:0", a.AdminAddr())
	resp, err := http.Get("http://" + a.AdminAddr() + "/healthz")
	require.NoError(t, err, "admin server must accept connections once ready")
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	id, err := a.Notifier.Notify(ctx, "grace@example.com", notify.Welcome{Name: "grace hopper"})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return rec.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	rec.mu.Lock()
	assert.Equal(t, "grace@example.com", rec.to[0])
	assert.Equal(t, id.String(), rec.sent[0].IdempotencyKey)
	assert.Contains(t, rec.sent[0].Body, "Grace Hopper")
	rec.mu.Unlock()

	require.Eventually(t, func() bool { return a.Stats.Snapshot().Completed == 1 }, 2*time.Second, 10*time.Millisecond)

	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/jobs/"+id.String(), nil))
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data queue.Envelope `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, queue.StatusCompleted, body.Data.Status)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		require.Fail(t, "app did not stop")
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()
	cfg := defaultConfig(t)
	cfg.Broker = "kafka"
	_, err := app.New(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, app.ErrUnknownDriver)
}

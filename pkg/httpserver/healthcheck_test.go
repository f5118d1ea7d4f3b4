package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/schedkit/pkg/httpserver"
)

func decodeHealth(t *testing.T, rec *httptest.ResponseRecorder) httpserver.HealthStatus {
	t.Helper()
	var body httpserver.HealthStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestHealthCheckHandler(t *testing.T) {
	t.Parallel()
	log := slog.New(slog.DiscardHandler)

	t.Run("liveness", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		httpserver.HealthCheckHandler(log)(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		body := decodeHealth(t, rec)
		assert.Equal(t, httpserver.StatusAlive, body.Status)
		assert.Empty(t, body.Checks)
	})

	t.Run("ready", func(t *testing.T) {
		t.Parallel()
		ok := httpserver.Check{Name: "broker", Probe: func(context.Context) error { return nil }}
		rec := httptest.NewRecorder()
		httpserver.HealthCheckHandler(log, ok)(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		body := decodeHealth(t, rec)
		assert.Equal(t, httpserver.StatusReady, body.Status)
		assert.Equal(t, map[string]string{"broker": "ok"}, body.Checks)
	})

	t.Run("not ready", func(t *testing.T) {
		t.Parallel()
		ok := httpserver.Check{Name: "transport", Probe: func(context.Context) error { return nil }}
		bad := httpserver.Check{Name: "broker", Probe: func(context.Context) error { return errors.New("connection refused") }}
		rec := httptest.NewRecorder()
		httpserver.HealthCheckHandler(nil, ok, bad)(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		body := decodeHealth(t, rec)
		assert.Equal(t, httpserver.StatusNotReady, body.Status)
		assert.Equal(t, "ok", body.Checks["transport"])
		assert.Equal(t, "connection refused", body.Checks["broker"])
	})

	t.Run("probe gets deadline", func(t *testing.T) {
		t.Parallel()
		var hasDeadline bool
		c := httpserver.Check{Name: "db", Probe: func(ctx context.Context) error {
			_, hasDeadline = ctx.Deadline()
			return nil
		}}
		rec := httptest.NewRecorder()
		httpserver.HealthCheckHandler(log, c)(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		assert.True(t, hasDeadline)
	})
}

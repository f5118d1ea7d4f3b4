package logger_test

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/schedkit/pkg/logger"
)

func TestGroup(t *testing.T) {
	attr := logger.Group("req", slog.String("id", "1"), slog.Int("n", 2))
	require.Equal(t, "req", attr.Key)
	require.Equal(t, slog.KindGroup, attr.Value.Kind())
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, "id", g[0].Key)
	assert.Equal(t, "n", g[1].Key)
}

func TestErrors(t *testing.T) {
	err1 := errors.New("first")
	err2 := errors.New("second")

	attr := logger.Errors(err1, nil, err2)
	require.Equal(t, "errors", attr.Key)
	require.Equal(t, slog.KindGroup, attr.Value.Kind())
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, err1, g[0].Value.Any())
	assert.Equal(t, err2, g[1].Value.Any())

	empty := logger.Errors(nil)
	assert.True(t, empty.Equal(slog.Attr{}))
}

func TestError(t *testing.T) {
	err := errors.New("boom")
	attr := logger.Error(err)
	require.Equal(t, "error", attr.Key)
	assert.Equal(t, err, attr.Value.Any())

	empty := logger.Error(nil)
	assert.True(t, empty.Equal(slog.Attr{}))
}

func TestJobAttrs(t *testing.T) {
	id := "0190b6a4-5e7f-7c3a-9d2e-1a2b3c4d5e6f"

	attr := logger.JobID(id)
	require.Equal(t, "job_id", attr.Key)
	assert.Equal(t, id, attr.Value.Any())
	assert.True(t, logger.JobID(nil).Equal(slog.Attr{}))

	type jobType string
	attr = logger.JobType(jobType("welcome"))
	assert.Equal(t, "job_type", attr.Key)
	assert.Equal(t, "welcome", attr.Value.String())

	attr = logger.WorkerID("host-1")
	assert.Equal(t, "worker_id", attr.Key)

	attr = logger.Attempt(2, 3)
	require.Equal(t, "attempt", attr.Key)
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, int64(2), g[0].Value.Int64())
	assert.Equal(t, int64(3), g[1].Value.Int64())
}

func TestDeliveryAttrs(t *testing.T) {
	assert.Equal(t, "target", logger.Target("a@example.com").Key)
	assert.Equal(t, "provider", logger.Provider("postmark").Key)

	attr := logger.MessageID("pm-1")
	require.Equal(t, "message_id", attr.Key)
	assert.Equal(t, "pm-1", attr.Value.Any())
	assert.True(t, logger.MessageID(nil).Equal(slog.Attr{}))

	attr = logger.Duration(1500 * time.Millisecond)
	assert.Equal(t, "duration", attr.Key)
	assert.Equal(t, 1500*time.Millisecond, attr.Value.Duration())
}

func TestRequestID(t *testing.T) {
	attr := logger.RequestID("abc")
	require.Equal(t, "request_id", attr.Key)
	assert.Equal(t, "abc", attr.Value.Any())
}

package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/schedkit/pkg/logger"
)

func TestWithJobContext(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logger.New(logger.WithJSONFormatter(), logger.WithOutput(buf), logger.WithJobContext())

	ctx := logger.ContextWithJobID(context.Background(), "job-1")
	log.InfoContext(ctx, "delivered")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "job-1", entry["job_id"])

	buf.Reset()
	log.InfoContext(context.Background(), "idle")
	entry = map[string]any{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.NotContains(t, entry, "job_id")
}

func TestJobIDFromContext(t *testing.T) {
	_, ok := logger.JobIDFromContext(context.Background())
	assert.False(t, ok)

	_, ok = logger.JobIDFromContext(logger.ContextWithJobID(context.Background(), ""))
	assert.False(t, ok)

	id, ok := logger.JobIDFromContext(logger.ContextWithJobID(context.Background(), "x"))
	assert.True(t, ok)
	assert.Equal(t, "x", id)
}

func TestFromConfig(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logger.FromConfig(logger.Config{Env: "production", Service: "notifyd", Level: "warn"},
		logger.WithOutput(buf))

	log.Info("hidden")
	assert.Empty(t, buf.String())

	log.WarnContext(logger.ContextWithJobID(context.Background(), "j"), "shown")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "notifyd", entry["service"])
	assert.Equal(t, "production", entry["env"])
	assert.Equal(t, "j", entry["job_id"])
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, logger.Config{}.Validate())
	assert.NoError(t, logger.Config{Level: "debug"}.Validate())
	assert.Error(t, logger.Config{Level: "loud"}.Validate())
}

func TestWithJobContext_CallSiteAttrWins(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logger.New(logger.WithJSONFormatter(), logger.WithOutput(buf), logger.WithJobContext())

	ctx := logger.ContextWithJobID(context.Background(), "from-context")
	log.InfoContext(ctx, "attempt finished", logger.JobID("from-call"))

	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte(`"job_id"`)), buf.String())
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "from-call", entry["job_id"])
}

func TestWithJobContext_KeepsExtractorsAcrossWith(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logger.New(logger.WithJSONFormatter(), logger.WithOutput(buf), logger.WithJobContext()).
		With(logger.Component("worker")).
		WithGroup("delivery")

	log.InfoContext(logger.ContextWithJobID(context.Background(), "job-7"), "sent")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "worker", entry["component"])
	group, ok := entry["delivery"].(map[string]any)
	require.True(t, ok, buf.String())
	assert.Equal(t, "job-7", group["job_id"])
}

package redisbroker

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/schedkit/pkg/queue"
)

func TestRecordRoundTrip(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	lockedUntil := now.Add(time.Minute)
	src := uuid.New()

	env := queue.NewEnvelope("welcome", "ann@example.com", json.RawMessage(`{"name":"Ann"}`), 3)
	env.CreatedAt = now
	env.AvailableAt = now
	env.Status = queue.StatusInFlight
	env.LockedBy = "w1"
	env.LockedUntil = &lockedUntil
	env.ReplayOf = &src

	got, err := toRecord(env).envelope()
	require.NoError(t, err)
	assert.Equal(t, env.ID, got.ID)
	assert.Equal(t, env.Type, got.Type)
	assert.JSONEq(t, string(env.Payload), string(got.Payload))
	assert.True(t, env.CreatedAt.Equal(got.CreatedAt))
	require.NotNil(t, got.LockedUntil)
	assert.True(t, lockedUntil.Equal(*got.LockedUntil))
	assert.Nil(t, got.CompletedAt)
	assert.Nil(t, got.LastAttemptAt)
	require.NotNil(t, got.ReplayOf)
	assert.Equal(t, src, *got.ReplayOf)
}

func TestRecordArgsCoverAllFields(t *testing.T) {
	t.Parallel()

	args := toRecord(queue.NewEnvelope("welcome", "ann@example.com", json.RawMessage(`{}`), 3)).args()
	require.Len(t, args, 32)

	fields := make(map[string]bool)
	for i := 0; i < len(args); i += 2 {
		fields[args[i].(string)] = true
	}
	for _, f := range []string{"id", "status", "attempt_count", "max_attempts", "available_at", "locked_until"} {
		assert.True(t, fields[f], f)
	}
}

func TestRecordRejectsCorruption(t *testing.T) {
	t.Parallel()

	_, err := record{ID: "not-a-uuid", Status: "pending"}.envelope()
	assert.ErrorIs(t, err, ErrCorruptRecord)

	_, err = record{ID: uuid.NewString(), Status: "archived"}.envelope()
	assert.ErrorIs(t, err, ErrCorruptRecord)
}

func TestTransitionError(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	assert.NoError(t, transitionError(codeOK, id))
	assert.NoError(t, transitionError(codeFailed, id))
	assert.ErrorIs(t, transitionError(codeNotFound, id), queue.ErrJobNotFound)
	assert.ErrorIs(t, transitionError(codeNotInFlight, id), queue.ErrNotInFlight)
	assert.ErrorIs(t, transitionError(42, id), ErrScriptFailed)
}

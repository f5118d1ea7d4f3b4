// Package brokertest holds the behaviour every queue.Store implementation must share.
// Adapter packages call Run from their own tests with a factory returning an empty store.
package brokertest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/schedkit/pkg/queue"
)

// Factory returns an empty store. It is called once per sub-test.
type Factory func(t *testing.T) queue.Store

// Run executes the conformance suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("claim returns ErrNoJob when empty", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Claim(context.Background(), "w1", time.Minute)
		assert.ErrorIs(t, err, queue.ErrNoJob)
	})

	t.Run("enqueue claim ack", func(t *testing.T) {
		store := newStore(t)
		env := NewEnvelope("ann@example.com", 3)
		require.NoError(t, store.Enqueue(context.Background(), env))

		claimed, err := store.Claim(context.Background(), "w1", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, env.ID, claimed.ID)
		assert.Equal(t, env.Type, claimed.Type)
		assert.Equal(t, env.Target, claimed.Target)
		assert.JSONEq(t, string(env.Payload), string(claimed.Payload))
		assert.Equal(t, queue.StatusInFlight, claimed.Status)
		assert.Equal(t, "w1", claimed.LockedBy)
		assert.NotNil(t, claimed.LockedUntil)

		require.NoError(t, store.Ack(context.Background(), env.ID, "w1"))
		assert.ErrorIs(t, store.Ack(context.Background(), env.ID, "w1"), queue.ErrNotInFlight)

		stored, err := store.Get(context.Background(), env.ID)
		require.NoError(t, err)
		assert.Equal(t, queue.StatusCompleted, stored.Status)
		assert.NotNil(t, stored.CompletedAt)

		_, err = store.Claim(context.Background(), "w1", time.Minute)
		assert.ErrorIs(t, err, queue.ErrNoJob)
	})

	t.Run("duplicate and unknown ids", func(t *testing.T) {
		store := newStore(t)
		env := NewEnvelope("ann@example.com", 3)
		require.NoError(t, store.Enqueue(context.Background(), env))
		assert.ErrorIs(t, store.Enqueue(context.Background(), env), queue.ErrDuplicateJob)

		assert.ErrorIs(t, store.Ack(context.Background(), env.ID, "w1"), queue.ErrNotInFlight)
		assert.ErrorIs(t, store.Ack(context.Background(), uuid.New(), "w1"), queue.ErrJobNotFound)
		assert.ErrorIs(t, store.Nack(context.Background(), uuid.New(), "w1", queue.NackParams{}), queue.ErrJobNotFound)
		_, err := store.Get(context.Background(), uuid.New())
		assert.ErrorIs(t, err, queue.ErrJobNotFound)
	})

	t.Run("claims in available order", func(t *testing.T) {
		store := newStore(t)
		base := time.Now().Add(-time.Hour).Truncate(time.Millisecond)

		ids := make([]uuid.UUID, 3)
		for i := 2; i >= 0; i-- {
			env := NewEnvelope(fmt.Sprintf("u%d@example.com", i), 3)
			env.CreatedAt = base.Add(time.Duration(i) * time.Second)
			env.AvailableAt = env.CreatedAt
			ids[i] = env.ID
			require.NoError(t, store.Enqueue(context.Background(), env))
		}

		for i := range 3 {
			claimed, err := store.Claim(context.Background(), "w1", time.Minute)
			require.NoError(t, err)
			assert.Equal(t, ids[i], claimed.ID)
		}
	})

	t.Run("delayed envelope is invisible", func(t *testing.T) {
		store := newStore(t)
		env := NewEnvelope("ann@example.com", 3)
		env.AvailableAt = time.Now().Add(time.Hour)
		require.NoError(t, store.Enqueue(context.Background(), env))

		_, err := store.Claim(context.Background(), "w1", time.Minute)
		assert.ErrorIs(t, err, queue.ErrNoJob)
	})

	t.Run("nack retries then fails permanently", func(t *testing.T) {
		store := newStore(t)
		env := NewEnvelope("ann@example.com", 2)
		require.NoError(t, store.Enqueue(context.Background(), env))

		claimed, err := store.Claim(context.Background(), "w1", time.Minute)
		require.NoError(t, err)
		require.NoError(t, store.Nack(context.Background(), claimed.ID, "w1", queue.NackParams{Retry: true, Reason: "first"}))

		stored, err := store.Get(context.Background(), env.ID)
		require.NoError(t, err)
		assert.Equal(t, queue.StatusPending, stored.Status)
		assert.Equal(t, 1, stored.AttemptCount)
		assert.Equal(t, "first", stored.LastError)

		claimed, err = store.Claim(context.Background(), "w1", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, env.ID, claimed.ID)
		require.NoError(t, store.Nack(context.Background(), claimed.ID, "w1", queue.NackParams{Retry: true, Reason: "second"}))

		stored, err = store.Get(context.Background(), env.ID)
		require.NoError(t, err)
		assert.Equal(t, queue.StatusFailedPermanent, stored.Status)
		assert.Equal(t, 2, stored.AttemptCount)
		assert.Equal(t, "second", stored.LastError)
		assert.NotNil(t, stored.FailedAt)

		_, err = store.Claim(context.Background(), "w1", time.Minute)
		assert.ErrorIs(t, err, queue.ErrNoJob)
	})

	t.Run("nack delay hides envelope", func(t *testing.T) {
		store := newStore(t)
		env := NewEnvelope("ann@example.com", 3)
		require.NoError(t, store.Enqueue(context.Background(), env))

		_, err := store.Claim(context.Background(), "w1", time.Minute)
		require.NoError(t, err)
		require.NoError(t, store.Nack(context.Background(), env.ID, "w1", queue.NackParams{Retry: true, Delay: time.Hour}))

		_, err = store.Claim(context.Background(), "w1", time.Minute)
		assert.ErrorIs(t, err, queue.ErrNoJob)
	})

	t.Run("expired lease is reclaimed", func(t *testing.T) {
		store := newStore(t)
		env := NewEnvelope("ann@example.com", 3)
		require.NoError(t, store.Enqueue(context.Background(), env))

		_, err := store.Claim(context.Background(), "crashed", 50*time.Millisecond)
		require.NoError(t, err)

		_, err = store.Claim(context.Background(), "w2", time.Minute)
		assert.ErrorIs(t, err, queue.ErrNoJob)

		var claimed *queue.Envelope
		require.Eventually(t, func() bool {
			claimed, err = store.Claim(context.Background(), "w2", time.Minute)
			return err == nil
		}, 3*time.Second, 20*time.Millisecond)

		assert.Equal(t, env.ID, claimed.ID)
		assert.Equal(t, "w2", claimed.LockedBy)
		assert.Equal(t, 0, claimed.AttemptCount)
	})

	t.Run("only the lease holder settles an envelope", func(t *testing.T) {
		store := newStore(t)
		env := NewEnvelope("ann@example.com", 3)
		require.NoError(t, store.Enqueue(context.Background(), env))

		_, err := store.Claim(context.Background(), "w1", 50*time.Millisecond)
		require.NoError(t, err)
		assert.ErrorIs(t, store.Ack(context.Background(), env.ID, "w2"), queue.ErrNotInFlight)

		require.Eventually(t, func() bool {
			_, err = store.Claim(context.Background(), "w2", time.Minute)
			return err == nil
		}, 3*time.Second, 20*time.Millisecond)

		// w1 outlived its lease; its outcome must not touch w2's attempt.
		assert.ErrorIs(t, store.Nack(context.Background(), env.ID, "w1", queue.NackParams{Retry: true}), queue.ErrNotInFlight)
		assert.ErrorIs(t, store.Ack(context.Background(), env.ID, "w1"), queue.ErrNotInFlight)

		_, err = store.Claim(context.Background(), "w3", time.Minute)
		assert.ErrorIs(t, err, queue.ErrNoJob)

		stored, err := store.Get(context.Background(), env.ID)
		require.NoError(t, err)
		assert.Equal(t, queue.StatusInFlight, stored.Status)
		assert.Equal(t, "w2", stored.LockedBy)
		assert.Equal(t, 0, stored.AttemptCount)

		require.NoError(t, store.Ack(context.Background(), env.ID, "w2"))
	})

	t.Run("concurrent claimers never share an envelope", func(t *testing.T) {
		store := newStore(t)
		const jobs = 30
		for i := range jobs {
			require.NoError(t, store.Enqueue(context.Background(), NewEnvelope(fmt.Sprintf("u%d@example.com", i), 3)))
		}

		var (
			mu      sync.Mutex
			claimed = make(map[uuid.UUID]int)
			wg      sync.WaitGroup
		)
		for w := range 4 {
			wg.Add(1)
			go func(workerID string) {
				defer wg.Done()
				for {
					env, err := store.Claim(context.Background(), workerID, time.Minute)
					if errors.Is(err, queue.ErrNoJob) {
						return
					}
					if !assert.NoError(t, err) {
						return
					}
					mu.Lock()
					claimed[env.ID]++
					mu.Unlock()
				}
			}(fmt.Sprintf("w%d", w))
		}
		wg.Wait()

		assert.Len(t, claimed, jobs)
		for id, n := range claimed {
			assert.Equal(t, 1, n, "envelope %s claimed %d times", id, n)
		}
	})

	t.Run("list failed and replay", func(t *testing.T) {
		store := newStore(t)

		var failed []uuid.UUID
		for i := range 2 {
			env := NewEnvelope(fmt.Sprintf("u%d@example.com", i), 1)
			require.NoError(t, store.Enqueue(context.Background(), env))
			claimed, err := store.Claim(context.Background(), "w1", time.Minute)
			require.NoError(t, err)
			require.NoError(t, store.Nack(context.Background(), claimed.ID, "w1", queue.NackParams{Retry: true, Reason: "boom"}))
			failed = append(failed, claimed.ID)
			time.Sleep(5 * time.Millisecond)
		}

		list, err := store.ListFailed(context.Background(), 10)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, failed[1], list[0].ID)
		assert.Equal(t, failed[0], list[1].ID)

		replayed, err := store.Replay(context.Background(), failed[0])
		require.NoError(t, err)
		require.NotNil(t, replayed.ReplayOf)
		assert.Equal(t, failed[0], *replayed.ReplayOf)

		claimed, err := store.Claim(context.Background(), "w1", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, replayed.ID, claimed.ID)
		assert.Equal(t, 0, claimed.AttemptCount)

		_, err = store.Replay(context.Background(), claimed.ID)
		assert.ErrorIs(t, err, queue.ErrNotFailed)
	})

	t.Run("prune removes completed only", func(t *testing.T) {
		store := newStore(t)

		done := NewEnvelope("done@example.com", 1)
		require.NoError(t, store.Enqueue(context.Background(), done))
		claimed, err := store.Claim(context.Background(), "w1", time.Minute)
		require.NoError(t, err)
		require.NoError(t, store.Ack(context.Background(), claimed.ID, "w1"))

		failed := NewEnvelope("failed@example.com", 1)
		require.NoError(t, store.Enqueue(context.Background(), failed))
		claimed, err = store.Claim(context.Background(), "w1", time.Minute)
		require.NoError(t, err)
		require.NoError(t, store.Nack(context.Background(), claimed.ID, "w1", queue.NackParams{}))

		n, err := store.PruneCompleted(context.Background(), time.Now().Add(time.Second))
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		_, err = store.Get(context.Background(), done.ID)
		assert.ErrorIs(t, err, queue.ErrJobNotFound)
		_, err = store.Get(context.Background(), failed.ID)
		assert.NoError(t, err)
	})
}

// NewEnvelope builds a test envelope with a small JSON payload.
func NewEnvelope(target string, maxAttempts int) *queue.Envelope {
	return queue.NewEnvelope("test.job", target, json.RawMessage(`{"n":1}`), maxAttempts)
}

package transport_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/schedkit/pkg/transport"
)

func TestCircuitBreaker_StateTransitions(t *testing.T) {
	t.Parallel()

	t.Run("closed to open", func(t *testing.T) {
		t.Parallel()

		cb := transport.NewCircuitBreaker(2, 1, 100*time.Millisecond)
		assert.Equal(t, transport.CircuitClosed, cb.State())

		cb.RecordFailure()
		assert.True(t, cb.Allow())

		cb.RecordFailure()
		assert.Equal(t, transport.CircuitOpen, cb.State())
		assert.False(t, cb.Allow())
	})

	t.Run("success resets failures", func(t *testing.T) {
		t.Parallel()

		cb := transport.NewCircuitBreaker(2, 1, time.Second)
		cb.RecordFailure()
		cb.RecordSuccess()
		cb.RecordFailure()
		assert.Equal(t, transport.CircuitClosed, cb.State())
	})

	t.Run("half-open closes after successes", func(t *testing.T) {
		t.Parallel()

		cb := transport.NewCircuitBreaker(1, 2, 20*time.Millisecond)
		cb.RecordFailure()
		require.False(t, cb.Allow())

		time.Sleep(30 * time.Millisecond)
		assert.True(t, cb.Allow())
		assert.Equal(t, transport.CircuitHalfOpen, cb.State())

		cb.RecordSuccess()
		assert.Equal(t, transport.CircuitHalfOpen, cb.State())
		cb.RecordSuccess()
		assert.Equal(t, transport.CircuitClosed, cb.State())
	})

	t.Run("half-open failure reopens", func(t *testing.T) {
		t.Parallel()

		cb := transport.NewCircuitBreaker(1, 2, 20*time.Millisecond)
		cb.RecordFailure()
		time.Sleep(30 * time.Millisecond)
		require.True(t, cb.Allow())

		cb.RecordFailure()
		assert.Equal(t, transport.CircuitOpen, cb.State())
		assert.False(t, cb.Allow())
	})

	t.Run("reset", func(t *testing.T) {
		t.Parallel()

		cb := transport.NewCircuitBreaker(1, 1, time.Hour)
		cb.RecordFailure()
		cb.Reset()
		assert.Equal(t, transport.CircuitClosed, cb.State())
		assert.True(t, cb.Allow())
	})

	assert.Equal(t, "half-open", transport.CircuitHalfOpen.String())
}

func TestWithCircuitBreaker(t *testing.T) {
	t.Parallel()

	t.Run("opens after provider failures", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		failing := transport.Func(func(context.Context, string, transport.Message) (transport.Receipt, error) {
			calls.Add(1)
			return transport.Receipt{}, transport.ErrDeliveryFailed
		})

		tr := transport.WithCircuitBreaker(failing, transport.NewCircuitBreaker(3, 1, time.Hour))
		for range 3 {
			_, err := tr.Deliver(context.Background(), "alice@example.com", testMessage())
			assert.ErrorIs(t, err, transport.ErrDeliveryFailed)
		}

		_, err := tr.Deliver(context.Background(), "alice@example.com", testMessage())
		assert.ErrorIs(t, err, transport.ErrCircuitOpen)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("permanent rejections do not open", func(t *testing.T) {
		t.Parallel()

		rejecting := transport.Func(func(context.Context, string, transport.Message) (transport.Receipt, error) {
			return transport.Receipt{}, errors.Join(transport.ErrDeliveryFailed, transport.ErrPermanentFailure)
		})

		cb := transport.NewCircuitBreaker(2, 1, time.Hour)
		tr := transport.WithCircuitBreaker(rejecting, cb)
		for range 5 {
			_, err := tr.Deliver(context.Background(), "alice@example.com", testMessage())
			assert.ErrorIs(t, err, transport.ErrPermanentFailure)
		}
		assert.Equal(t, transport.CircuitClosed, cb.State())
	})
}

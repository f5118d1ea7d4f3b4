package transport_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/schedkit/pkg/transport"
)

func TestWithRateLimit(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	counting := transport.Func(func(context.Context, string, transport.Message) (transport.Receipt, error) {
		calls.Add(1)
		return transport.Receipt{Provider: "count"}, nil
	})

	t.Run("burst passes immediately", func(t *testing.T) {
		tr := transport.WithRateLimit(counting, 1, 3)

		start := time.Now()
		for range 3 {
			_, err := tr.Deliver(context.Background(), "alice@example.com", testMessage())
			require.NoError(t, err)
		}
		assert.Less(t, time.Since(start), 500*time.Millisecond)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("exhausted bucket respects context", func(t *testing.T) {
		tr := transport.WithRateLimit(counting, 0.01, 1)

		_, err := tr.Deliver(context.Background(), "alice@example.com", testMessage())
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err = tr.Deliver(ctx, "alice@example.com", testMessage())
		assert.Error(t, err)
		assert.Equal(t, int32(4), calls.Load())
	})
}

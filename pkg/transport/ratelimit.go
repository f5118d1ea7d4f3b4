package transport

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"
)

type rateLimitedTransport struct {
	next    Transport
	limiter *rate.Limiter
}

// WithRateLimit wraps next so at most perSecond deliveries start each second,
// with bursts up to burst. Callers wait for a token until ctx is done.
func WithRateLimit(next Transport, perSecond float64, burst int) Transport {
	if burst < 1 {
		burst = 1
	}
	return &rateLimitedTransport{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

func (t *rateLimitedTransport) Deliver(ctx context.Context, target string, msg Message) (Receipt, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Receipt{}, errors.Join(ErrTimeout, err)
		}
		return Receipt{}, fmt.Errorf("%w: rate limit wait: %w", ErrDeliveryFailed, err)
	}
	return t.next.Deliver(ctx, target, msg)
}

package queue

import (
	"math"
	"math/rand/v2"
	"time"
)

// BackoffStrategy calculates the delay before a failed job becomes claimable again.
// Implementations should be safe for concurrent use.
type BackoffStrategy interface {
	// NextInterval returns the delay after the given failed attempt. Attempt starts at 1.
	NextInterval(attempt int) time.Duration
}

// ExponentialBackoff doubles the delay on every failed attempt, bounded by Max.
// Jitter spreads retries of jobs that failed together, e.g. during a provider outage.
type ExponentialBackoff struct {
	Base         time.Duration
	Max          time.Duration
	JitterFactor float64
}

// NextInterval returns min(Base * 2^(attempt-1) * (1 ± JitterFactor), Max).
func (e ExponentialBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	base := e.Base
	if base <= 0 {
		base = time.Second
	}
	maxInterval := e.Max
	if maxInterval <= 0 {
		maxInterval = 10 * time.Minute
	}

	interval := float64(base) * math.Pow(2, float64(attempt-1))
	if e.JitterFactor > 0 {
		interval *= 1 + (rand.Float64()*2-1)*e.JitterFactor
	}
	if interval > float64(maxInterval) {
		interval = float64(maxInterval)
	}

	return time.Duration(interval)
}

// FixedBackoff returns the same delay for every attempt.
type FixedBackoff time.Duration

// NextInterval implements BackoffStrategy.
func (f FixedBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return time.Duration(f)
}

// RetryPolicy decides what happens to an envelope after a failed attempt.
//
// Failures are not classified: an unknown job type is retried like a network blip
// and surfaces as a permanent failure once the attempt budget is spent.
type RetryPolicy struct {
	Backoff BackoffStrategy
}

// DefaultRetryPolicy returns exponential backoff starting at 5s and capped at 10m.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Backoff: ExponentialBackoff{Base: 5 * time.Second, Max: 10 * time.Minute, JitterFactor: 0.1}}
}

// Decide builds nack parameters for env after its current attempt failed with cause.
func (p RetryPolicy) Decide(env *Envelope, cause error) NackParams {
	params := NackParams{}
	if cause != nil {
		params.Reason = cause.Error()
	}

	attempt := env.AttemptCount + 1
	if attempt >= env.MaxAttempts {
		return params
	}

	params.Retry = true
	if p.Backoff != nil {
		params.Delay = p.Backoff.NextInterval(attempt)
	}
	return params
}

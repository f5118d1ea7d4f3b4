package transport

import (
	"context"
	"sync"
	"time"
)

// CircuitState is the state of a CircuitBreaker.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker stops calls to a provider after consecutive failures and lets
// a probe through once the recovery timeout has passed. Safe for concurrent use.
type CircuitBreaker struct {
	mu sync.Mutex

	failureThreshold int
	successThreshold int
	recoveryTimeout  time.Duration
	now              func() time.Time

	state        CircuitState
	failures     int
	successCount int
	lastFailure  time.Time
}

// NewCircuitBreaker creates a closed breaker. Zero values fall back to
// 5 failures, 2 successes and 30s recovery.
func NewCircuitBreaker(failureThreshold, successThreshold int, recoveryTimeout time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if successThreshold <= 0 {
		successThreshold = 2
	}
	if recoveryTimeout <= 0 {
		recoveryTimeout = 30 * time.Second
	}
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		recoveryTimeout:  recoveryTimeout,
		now:              time.Now,
	}
}

// Allow reports whether a call may proceed. An open breaker past its recovery
// timeout moves to half-open.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed, CircuitHalfOpen:
		return true
	case CircuitOpen:
		if cb.now().Sub(cb.lastFailure) > cb.recoveryTimeout {
			cb.state = CircuitHalfOpen
			cb.successCount = 0
			return true
		}
	}
	return false
}

// RecordSuccess resets the failure count, or closes a half-open breaker after
// enough consecutive successes.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		cb.failures = 0
	case CircuitHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.successThreshold {
			cb.state = CircuitClosed
			cb.failures = 0
			cb.successCount = 0
		}
	}
}

// RecordFailure counts a failure. A half-open breaker reopens immediately.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.lastFailure = cb.now()

	switch cb.state {
	case CircuitClosed:
		cb.failures++
		if cb.failures >= cb.failureThreshold {
			cb.state = CircuitOpen
		}
	case CircuitHalfOpen:
		cb.state = CircuitOpen
		cb.failures = cb.failureThreshold
		cb.successCount = 0
	}
}

// State returns the state Allow would act on.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitOpen && cb.now().Sub(cb.lastFailure) > cb.recoveryTimeout {
		return CircuitHalfOpen
	}
	return cb.state
}

// Reset closes the breaker and clears its counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = CircuitClosed
	cb.failures = 0
	cb.successCount = 0
	cb.lastFailure = time.Time{}
}

type circuitTransport struct {
	next    Transport
	breaker *CircuitBreaker
}

// WithCircuitBreaker wraps next so calls fail fast with ErrCircuitOpen while
// the provider is failing. Invalid messages and permanent rejections do not
// count against the provider.
func WithCircuitBreaker(next Transport, cb *CircuitBreaker) Transport {
	return &circuitTransport{next: next, breaker: cb}
}

func (t *circuitTransport) Deliver(ctx context.Context, target string, msg Message) (Receipt, error) {
	if !t.breaker.Allow() {
		return Receipt{}, ErrCircuitOpen
	}

	receipt, err := t.next.Deliver(ctx, target, msg)
	switch {
	case err == nil:
		t.breaker.RecordSuccess()
	case isCallerError(err):
		// The provider answered; it is healthy.
		t.breaker.RecordSuccess()
	default:
		t.breaker.RecordFailure()
	}
	return receipt, err
}

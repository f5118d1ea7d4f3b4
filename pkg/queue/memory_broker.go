package queue

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryBroker implements Store in process memory for tests and local development.
// It is not durable: everything is lost when the process exits.
type MemoryBroker struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*Envelope

	// live keeps non-terminal ids in enqueue order
	live []uuid.UUID

	now func() time.Time
}

// MemoryBrokerOption configures a MemoryBroker.
type MemoryBrokerOption func(*MemoryBroker)

// WithClock replaces time.Now, letting tests move past leases and backoff delays.
func WithClock(now func() time.Time) MemoryBrokerOption {
	return func(b *MemoryBroker) {
		if now != nil {
			b.now = now
		}
	}
}

// NewMemoryBroker creates an empty in-memory broker.
func NewMemoryBroker(opts ...MemoryBrokerOption) *MemoryBroker {
	b := &MemoryBroker{
		jobs: make(map[uuid.UUID]*Envelope),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Enqueue implements Broker.
func (b *MemoryBroker) Enqueue(ctx context.Context, env *Envelope) error {
	if err := env.Validate(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.jobs[env.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, env.ID)
	}

	stored := env.Clone()
	stored.Status = StatusPending
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = b.now().UTC()
	}
	if stored.AvailableAt.IsZero() {
		stored.AvailableAt = stored.CreatedAt
	}

	b.jobs[stored.ID] = stored
	b.live = append(b.live, stored.ID)

	return nil
}

// Claim implements Broker.
// Selection is oldest available_at first, falling back to creation time on ties.
// In-flight envelopes with an expired lease are eligible, which recovers jobs from crashed workers.
func (b *MemoryBroker) Claim(ctx context.Context, workerID string, lease time.Duration) (*Envelope, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now().UTC()
	var best *Envelope
	for _, id := range b.live {
		env := b.jobs[id]
		if !env.Claimable(now) {
			continue
		}
		if best == nil ||
			env.AvailableAt.Before(best.AvailableAt) ||
			(env.AvailableAt.Equal(best.AvailableAt) && env.CreatedAt.Before(best.CreatedAt)) {
			best = env
		}
	}

	if best == nil {
		return nil, ErrNoJob
	}

	lockedUntil := now.Add(lease)
	attemptAt := now
	best.Status = StatusInFlight
	best.LockedBy = workerID
	best.LockedUntil = &lockedUntil
	best.LastAttemptAt = &attemptAt

	return best.Clone(), nil
}

// Ack implements Broker.
func (b *MemoryBroker) Ack(ctx context.Context, id uuid.UUID, workerID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	env, err := b.leasedTo(id, workerID)
	if err != nil {
		return err
	}

	now := b.now().UTC()
	env.Status = StatusCompleted
	env.CompletedAt = &now
	env.LockedBy = ""
	env.LockedUntil = nil
	b.removeLive(id)

	return nil
}

// Nack implements Broker.
func (b *MemoryBroker) Nack(ctx context.Context, id uuid.UUID, workerID string, params NackParams) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	env, err := b.leasedTo(id, workerID)
	if err != nil {
		return err
	}

	now := b.now().UTC()
	if env.AttemptCount < env.MaxAttempts {
		env.AttemptCount++
	}
	env.LastError = params.Reason
	env.LockedBy = ""
	env.LockedUntil = nil

	if params.Retry && env.AttemptCount < env.MaxAttempts {
		env.Status = StatusPending
		env.AvailableAt = now.Add(params.Delay)
		return nil
	}

	env.Status = StatusFailedPermanent
	env.FailedAt = &now
	b.removeLive(id)

	return nil
}

// Get implements Inspector.
func (b *MemoryBroker) Get(ctx context.Context, id uuid.UUID) (*Envelope, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	env, ok := b.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return env.Clone(), nil
}

// ListFailed implements Inspector.
func (b *MemoryBroker) ListFailed(ctx context.Context, limit int) ([]*Envelope, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	failed := make([]*Envelope, 0)
	for _, env := range b.jobs {
		if env.Status == StatusFailedPermanent {
			failed = append(failed, env.Clone())
		}
	}

	slices.SortFunc(failed, func(a, c *Envelope) int {
		return c.FailedAt.Compare(*a.FailedAt)
	})
	if limit > 0 && len(failed) > limit {
		failed = failed[:limit]
	}

	return failed, nil
}

// Replay implements Inspector.
func (b *MemoryBroker) Replay(ctx context.Context, id uuid.UUID) (*Envelope, error) {
	b.mu.Lock()
	src, ok := b.jobs[id]
	if !ok {
		b.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if src.Status != StatusFailedPermanent {
		b.mu.Unlock()
		return nil, fmt.Errorf("%w: %s is %s", ErrNotFailed, id, src.Status)
	}
	env := Replay(src)
	b.mu.Unlock()

	if err := b.Enqueue(ctx, env); err != nil {
		return nil, err
	}
	return env, nil
}

// PruneCompleted implements Pruner.
func (b *MemoryBroker) PruneCompleted(ctx context.Context, before time.Time) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pruned := 0
	for id, env := range b.jobs {
		if env.Status == StatusCompleted && env.CompletedAt != nil && env.CompletedAt.Before(before) {
			delete(b.jobs, id)
			pruned++
		}
	}
	return pruned, nil
}

// leasedTo must be called with the mutex held.
func (b *MemoryBroker) leasedTo(id uuid.UUID, workerID string) (*Envelope, error) {
	env, ok := b.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if env.Status != StatusInFlight {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotInFlight, id, env.Status)
	}
	if env.LockedBy != workerID {
		return nil, fmt.Errorf("%w: %s is leased to %s", ErrNotInFlight, id, env.LockedBy)
	}
	return env, nil
}

func (b *MemoryBroker) removeLive(id uuid.UUID) {
	b.live = slices.DeleteFunc(b.live, func(v uuid.UUID) bool {
		return v == id
	})
}

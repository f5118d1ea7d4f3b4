package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Broker is the durable hand-off point between producers and workers.
// Implementations must make Claim atomic: an envelope is leased to exactly one caller at a time.
type Broker interface {
	// Enqueue stores a new pending envelope. It never waits for a consumer.
	Enqueue(ctx context.Context, env *Envelope) error

	// Claim leases the oldest claimable envelope to workerID for the lease duration.
	// Returns ErrNoJob when nothing is claimable.
	Claim(ctx context.Context, workerID string, lease time.Duration) (*Envelope, error)

	// Ack marks an envelope leased to workerID as completed.
	// Returns ErrNotInFlight when the envelope is not in flight or another worker holds the lease.
	Ack(ctx context.Context, id uuid.UUID, workerID string) error

	// Nack records a failed attempt of an envelope leased to workerID. The envelope is returned
	// to the pending pool after params.Delay when params.Retry is set and attempts remain,
	// otherwise it fails permanently. Ownership is checked as in Ack.
	Nack(ctx context.Context, id uuid.UUID, workerID string, params NackParams) error
}

// Inspector exposes read and replay operations for operators.
type Inspector interface {
	// Get returns a single envelope by id.
	Get(ctx context.Context, id uuid.UUID) (*Envelope, error)

	// ListFailed returns permanently failed envelopes, most recent first.
	ListFailed(ctx context.Context, limit int) ([]*Envelope, error)

	// Replay enqueues a copy of a permanently failed envelope and returns it.
	Replay(ctx context.Context, id uuid.UUID) (*Envelope, error)
}

// Pruner removes completed envelopes finished before the cutoff.
// Failed envelopes are never pruned so they stay available for diagnosis.
type Pruner interface {
	PruneCompleted(ctx context.Context, before time.Time) (int, error)
}

// Store is the full set of capabilities every bundled broker implements.
type Store interface {
	Broker
	Inspector
	Pruner
}

package mongobroker

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/schedkit/pkg/queue"
)

// document is the stored form of an envelope. The payload is kept as JSON text so it
// round-trips byte for byte.
type document struct {
	ID            string     `bson:"_id"`
	Type          string     `bson:"type"`
	Payload       string     `bson:"payload"`
	Target        string     `bson:"target"`
	AttemptCount  int        `bson:"attempt_count"`
	MaxAttempts   int        `bson:"max_attempts"`
	Status        string     `bson:"status"`
	CreatedAt     time.Time  `bson:"created_at"`
	AvailableAt   time.Time  `bson:"available_at"`
	LastAttemptAt *time.Time `bson:"last_attempt_at,omitempty"`
	LastError     string     `bson:"last_error"`
	LockedBy      string     `bson:"locked_by"`
	LockedUntil   *time.Time `bson:"locked_until,omitempty"`
	CompletedAt   *time.Time `bson:"completed_at,omitempty"`
	FailedAt      *time.Time `bson:"failed_at,omitempty"`
	ReplayOf      string     `bson:"replay_of,omitempty"`
}

func toDocument(env *queue.Envelope) document {
	d := document{
		ID:            env.ID.String(),
		Type:          string(env.Type),
		Payload:       string(env.Payload),
		Target:        env.Target,
		AttemptCount:  env.AttemptCount,
		MaxAttempts:   env.MaxAttempts,
		Status:        string(env.Status),
		CreatedAt:     env.CreatedAt.UTC(),
		AvailableAt:   env.AvailableAt.UTC(),
		LastAttemptAt: env.LastAttemptAt,
		LastError:     env.LastError,
		LockedBy:      env.LockedBy,
		LockedUntil:   env.LockedUntil,
		CompletedAt:   env.CompletedAt,
		FailedAt:      env.FailedAt,
	}
	if env.ReplayOf != nil {
		d.ReplayOf = env.ReplayOf.String()
	}
	return d
}

func (d document) envelope() (*queue.Envelope, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: bad id %q: %w", ErrCorruptDocument, d.ID, err)
	}

	env := &queue.Envelope{
		ID:            id,
		Type:          queue.JobType(d.Type),
		Payload:       json.RawMessage(d.Payload),
		Target:        d.Target,
		AttemptCount:  d.AttemptCount,
		MaxAttempts:   d.MaxAttempts,
		Status:        queue.Status(d.Status),
		CreatedAt:     d.CreatedAt.UTC(),
		AvailableAt:   d.AvailableAt.UTC(),
		LastAttemptAt: utc(d.LastAttemptAt),
		LastError:     d.LastError,
		LockedBy:      d.LockedBy,
		LockedUntil:   utc(d.LockedUntil),
		CompletedAt:   utc(d.CompletedAt),
		FailedAt:      utc(d.FailedAt),
	}
	if !env.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q for %s", ErrCorruptDocument, d.Status, d.ID)
	}
	if d.ReplayOf != "" {
		src, err := uuid.Parse(d.ReplayOf)
		if err != nil {
			return nil, fmt.Errorf("%w: bad replay_of %q: %w", ErrCorruptDocument, d.ReplayOf, err)
		}
		env.ReplayOf = &src
	}
	return env, nil
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

package redisbroker

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/schedkit/pkg/queue"
)

// record is the hash layout of a job. Times are unix milliseconds, zero means unset.
// Field names are shared with the Lua scripts.
type record struct {
	ID            string `redis:"id"`
	Type          string `redis:"type"`
	Payload       string `redis:"payload"`
	Target        string `redis:"target"`
	AttemptCount  int    `redis:"attempt_count"`
	MaxAttempts   int    `redis:"max_attempts"`
	Status        string `redis:"status"`
	CreatedAt     int64  `redis:"created_at"`
	AvailableAt   int64  `redis:"available_at"`
	LastAttemptAt int64  `redis:"last_attempt_at"`
	LastError     string `redis:"last_error"`
	LockedBy      string `redis:"locked_by"`
	LockedUntil   int64  `redis:"locked_until"`
	CompletedAt   int64  `redis:"completed_at"`
	FailedAt      int64  `redis:"failed_at"`
	ReplayOf      string `redis:"replay_of"`
}

func toRecord(env *queue.Envelope) record {
	r := record{
		ID:            env.ID.String(),
		Type:          string(env.Type),
		Payload:       string(env.Payload),
		Target:        env.Target,
		AttemptCount:  env.AttemptCount,
		MaxAttempts:   env.MaxAttempts,
		Status:        string(env.Status),
		CreatedAt:     toMillis(env.CreatedAt),
		AvailableAt:   toMillis(env.AvailableAt),
		LastAttemptAt: toMillisPtr(env.LastAttemptAt),
		LastError:     env.LastError,
		LockedBy:      env.LockedBy,
		LockedUntil:   toMillisPtr(env.LockedUntil),
		CompletedAt:   toMillisPtr(env.CompletedAt),
		FailedAt:      toMillisPtr(env.FailedAt),
	}
	if env.ReplayOf != nil {
		r.ReplayOf = env.ReplayOf.String()
	}
	return r
}

// args flattens the record into HSET field/value pairs.
func (r record) args() []any {
	return []any{
		"id", r.ID,
		"type", r.Type,
		"payload", r.Payload,
		"target", r.Target,
		"attempt_count", r.AttemptCount,
		"max_attempts", r.MaxAttempts,
		"status", r.Status,
		"created_at", r.CreatedAt,
		"available_at", r.AvailableAt,
		"last_attempt_at", r.LastAttemptAt,
		"last_error", r.LastError,
		"locked_by", r.LockedBy,
		"locked_until", r.LockedUntil,
		"completed_at", r.CompletedAt,
		"failed_at", r.FailedAt,
		"replay_of", r.ReplayOf,
	}
}

func (r record) envelope() (*queue.Envelope, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: bad id %q: %w", ErrCorruptRecord, r.ID, err)
	}

	env := &queue.Envelope{
		ID:            id,
		Type:          queue.JobType(r.Type),
		Payload:       json.RawMessage(r.Payload),
		Target:        r.Target,
		AttemptCount:  r.AttemptCount,
		MaxAttempts:   r.MaxAttempts,
		Status:        queue.Status(r.Status),
		CreatedAt:     fromMillis(r.CreatedAt),
		AvailableAt:   fromMillis(r.AvailableAt),
		LastAttemptAt: fromMillisPtr(r.LastAttemptAt),
		LastError:     r.LastError,
		LockedBy:      r.LockedBy,
		LockedUntil:   fromMillisPtr(r.LockedUntil),
		CompletedAt:   fromMillisPtr(r.CompletedAt),
		FailedAt:      fromMillisPtr(r.FailedAt),
	}
	if !env.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q for %s", ErrCorruptRecord, r.Status, r.ID)
	}
	if r.ReplayOf != "" {
		src, err := uuid.Parse(r.ReplayOf)
		if err != nil {
			return nil, fmt.Errorf("%w: bad replay_of %q: %w", ErrCorruptRecord, r.ReplayOf, err)
		}
		env.ReplayOf = &src
	}
	return env, nil
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func toMillisPtr(t *time.Time) int64 {
	if t == nil {
		return 0
	}
	return toMillis(*t)
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func fromMillisPtr(ms int64) *time.Time {
	if ms == 0 {
		return nil
	}
	t := fromMillis(ms)
	return &t
}

package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxAttempts is used when an envelope is enqueued without an explicit attempt budget.
const DefaultMaxAttempts = 3

// MaxAttemptsLimit caps the attempt budget to keep a broken job from cycling forever.
const MaxAttemptsLimit = 10

// JobType identifies the kind of work carried by an envelope.
// The broker never interprets it; handlers use it to pick a payload shape.
type JobType string

// Status represents the lifecycle state of an envelope.
type Status string

const (
	StatusPending         Status = "pending"
	StatusInFlight        Status = "in_flight"
	StatusCompleted       Status = "completed"
	StatusFailedPermanent Status = "failed_permanent"
)

// Terminal reports whether no further transitions are possible from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailedPermanent
}

// Valid checks that s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInFlight, StatusCompleted, StatusFailedPermanent:
		return true
	}
	return false
}

// Envelope is the unit of work moved through the broker.
//
// The JSON shape is the wire contract between producers and workers built from
// different versions: fields may be added, never renamed.
type Envelope struct {
	ID            uuid.UUID       `json:"id"`
	Type          JobType         `json:"type"`
	Payload       json.RawMessage `json:"payload"`
	Target        string          `json:"target"`
	AttemptCount  int             `json:"attempt_count"`
	MaxAttempts   int             `json:"max_attempts"`
	Status        Status          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	AvailableAt   time.Time       `json:"available_at"`
	LastAttemptAt *time.Time      `json:"last_attempt_at,omitempty"`
	LastError     string          `json:"last_error,omitempty"`
	LockedBy      string          `json:"locked_by,omitempty"`
	LockedUntil   *time.Time      `json:"locked_until,omitempty"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	FailedAt      *time.Time      `json:"failed_at,omitempty"`
	ReplayOf      *uuid.UUID      `json:"replay_of,omitempty"`
}

// Clone returns a deep copy so brokers can hand out envelopes without sharing state.
func (e *Envelope) Clone() *Envelope {
	if e == nil {
		return nil
	}
	c := *e
	if e.Payload != nil {
		c.Payload = append(json.RawMessage(nil), e.Payload...)
	}
	c.LastAttemptAt = cloneTime(e.LastAttemptAt)
	c.LockedUntil = cloneTime(e.LockedUntil)
	c.CompletedAt = cloneTime(e.CompletedAt)
	c.FailedAt = cloneTime(e.FailedAt)
	if e.ReplayOf != nil {
		id := *e.ReplayOf
		c.ReplayOf = &id
	}
	return &c
}

// Validate checks the fields a broker relies on before storing a new envelope.
func (e *Envelope) Validate() error {
	switch {
	case e == nil:
		return ErrEnvelopeNil
	case e.ID == uuid.Nil:
		return fmt.Errorf("%w: id is required", ErrInvalidEnvelope)
	case e.Type == "":
		return fmt.Errorf("%w: type is required", ErrInvalidEnvelope)
	case e.Target == "":
		return fmt.Errorf("%w: target is required", ErrInvalidEnvelope)
	case e.MaxAttempts < 1 || e.MaxAttempts > MaxAttemptsLimit:
		return fmt.Errorf("%w: max_attempts must be between 1 and %d", ErrInvalidEnvelope, MaxAttemptsLimit)
	case e.AttemptCount < 0 || e.AttemptCount > e.MaxAttempts:
		return fmt.Errorf("%w: attempt_count out of range", ErrInvalidEnvelope)
	}
	return nil
}

// Claimable reports whether the envelope may be handed to a worker at now:
// a pending envelope past its visibility delay, or an in-flight one whose lease expired.
func (e *Envelope) Claimable(now time.Time) bool {
	switch e.Status {
	case StatusPending:
		return !e.AvailableAt.After(now)
	case StatusInFlight:
		return e.LockedUntil != nil && !e.LockedUntil.After(now)
	}
	return false
}

// NackParams describes how a failed attempt should be recorded.
type NackParams struct {
	// Retry requests the envelope be returned to the pending pool.
	// Ignored once the attempt budget is exhausted.
	Retry bool
	// Delay before the envelope becomes claimable again.
	Delay time.Duration
	// Reason is stored as LastError for operators.
	Reason string
}

// NewEnvelope builds a pending envelope ready to be handed to a broker.
// Ids are UUIDv7, so their string form sorts by creation time.
func NewEnvelope(jobType JobType, target string, payload json.RawMessage, maxAttempts int) *Envelope {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if maxAttempts > MaxAttemptsLimit {
		maxAttempts = MaxAttemptsLimit
	}
	now := time.Now().UTC()
	return &Envelope{
		ID:          uuid.Must(uuid.NewV7()),
		Type:        jobType,
		Payload:     payload,
		Target:      target,
		MaxAttempts: maxAttempts,
		Status:      StatusPending,
		CreatedAt:   now,
		AvailableAt: now,
	}
}

// Replay builds a fresh pending envelope from a permanently failed one.
// The source record is left untouched for the audit trail.
func Replay(src *Envelope) *Envelope {
	env := NewEnvelope(src.Type, src.Target, append(json.RawMessage(nil), src.Payload...), src.MaxAttempts)
	id := src.ID
	env.ReplayOf = &id
	return env
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Producer turns committed business events into envelopes and hands them to the broker.
// It never waits for a job to be processed.
type Producer struct {
	broker      Broker
	maxAttempts int
}

// NewProducer creates a new Producer
func NewProducer(broker Broker, opts ...ProducerOption) (*Producer, error) {
	if broker == nil {
		return nil, ErrBrokerNil
	}

	options := &producerOptions{
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Producer{
		broker:      broker,
		maxAttempts: options.maxAttempts,
	}, nil
}

// Enqueue stores a new job and returns its id.
//
// Call it only after the state change it reports has been committed. A returned error
// means the side effect was not scheduled; the caller decides whether to retry or drop it,
// the business transaction itself should not be rolled back.
func (p *Producer) Enqueue(ctx context.Context, jobType JobType, target string, payload any, opts ...EnqueueOption) (uuid.UUID, error) {
	if payload == nil {
		return uuid.Nil, fmt.Errorf("%w: payload cannot be nil", ErrInvalidEnvelope)
	}

	options := &enqueueOptions{
		maxAttempts: p.maxAttempts,
	}
	for _, opt := range opts {
		opt(options)
	}

	raw, err := marshalPayload(payload)
	if err != nil {
		return uuid.Nil, err
	}

	env := NewEnvelope(jobType, target, raw, options.maxAttempts)
	if options.delay > 0 {
		env.AvailableAt = env.CreatedAt.Add(options.delay)
	}
	if err := env.Validate(); err != nil {
		return uuid.Nil, err
	}

	if err := p.broker.Enqueue(ctx, env); err != nil {
		return uuid.Nil, errors.Join(ErrEnqueue, fmt.Errorf("job %q for %q: %w", jobType, target, err))
	}

	return env.ID, nil
}

func marshalPayload(payload any) (json.RawMessage, error) {
	if raw, ok := payload.(json.RawMessage); ok {
		if !json.Valid(raw) {
			return nil, ErrPayloadMarshal
		}
		return raw, nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Join(ErrPayloadMarshal, fmt.Errorf("payload of type %T: %w", payload, err))
	}
	return raw, nil
}

// ProducerOption is a functional option for configuring a Producer
type ProducerOption func(*producerOptions)

type producerOptions struct {
	maxAttempts int
}

// WithDefaultMaxAttempts sets the attempt budget for jobs enqueued without WithMaxAttempts
func WithDefaultMaxAttempts(n int) ProducerOption {
	return func(o *producerOptions) {
		if n > 0 && n <= MaxAttemptsLimit {
			o.maxAttempts = n
		}
	}
}

// EnqueueOption is a functional option for the Enqueue method
type EnqueueOption func(*enqueueOptions)

type enqueueOptions struct {
	maxAttempts int
	delay       time.Duration
}

// WithMaxAttempts sets the attempt budget (1-10)
// Capped at 10 to prevent infinite retry loops on persistent failures
func WithMaxAttempts(n int) EnqueueOption {
	return func(o *enqueueOptions) {
		if n > 0 && n <= MaxAttemptsLimit {
			o.maxAttempts = n
		}
	}
}

// WithDelay sets a delay before the job can be claimed
func WithDelay(delay time.Duration) EnqueueOption {
	return func(o *enqueueOptions) {
		if delay > 0 {
			o.delay = delay
		}
	}
}

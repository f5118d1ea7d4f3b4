package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/schedkit/pkg/logger"
	"github.com/dmitrymomot/schedkit/pkg/queue"
)

// Enqueuer is the producer contract; *queue.Producer satisfies it.
type Enqueuer interface {
	Enqueue(ctx context.Context, jobType queue.JobType, target string, payload any, opts ...queue.EnqueueOption) (uuid.UUID, error)
}

// Notifier schedules notifications from request handlers.
type Notifier struct {
	producer Enqueuer
	logger   *slog.Logger
}

// NewNotifier creates a notifier enqueueing through producer.
func NewNotifier(producer Enqueuer, log *slog.Logger) (*Notifier, error) {
	if producer == nil {
		return nil, ErrProducerNil
	}
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{producer: producer, logger: log}, nil
}

// Notify enqueues p for target and returns without waiting for delivery.
//
// Call it only after the business change it reports has committed. The error is
// returned for the caller to record; it must not roll back the business change.
func (n *Notifier) Notify(ctx context.Context, target string, p Payload, opts ...queue.EnqueueOption) (uuid.UUID, error) {
	if p == nil {
		return uuid.Nil, fmt.Errorf("%w: payload is nil", ErrInvalidPayload)
	}
	p = deref(p)
	if err := p.Validate(); err != nil {
		return uuid.Nil, err
	}

	id, err := n.producer.Enqueue(ctx, p.JobType(), target, p, opts...)
	if err != nil {
		n.logger.ErrorContext(ctx, "failed to schedule notification",
			logger.JobType(p.JobType()),
			logger.Target(target),
			logger.Error(err))
		return uuid.Nil, err
	}

	n.logger.DebugContext(ctx, "notification scheduled",
		logger.JobID(id.String()),
		logger.JobType(p.JobType()),
		logger.Target(target))
	return id, nil
}

// Submit decodes a raw payload for jobType and schedules it like Notify.
// It serves operator tooling, where the payload arrives as JSON.
func (n *Notifier) Submit(ctx context.Context, jobType queue.JobType, target string, raw json.RawMessage, opts ...queue.EnqueueOption) (uuid.UUID, error) {
	p, err := Decode(jobType, raw)
	if err != nil {
		return uuid.Nil, err
	}
	return n.Notify(ctx, target, p, opts...)
}

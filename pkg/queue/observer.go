package queue

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/schedkit/pkg/logger"
)

// Outcome is the result of a single attempt as seen by the worker.
type Outcome string

const (
	// OutcomeCompleted means the handler succeeded and the job was acked.
	OutcomeCompleted Outcome = "completed"
	// OutcomeRetrying means the attempt failed and the job went back to the pending pool.
	OutcomeRetrying Outcome = "retrying"
	// OutcomeFailed means the attempt failed and the job is permanently failed.
	OutcomeFailed Outcome = "failed"
)

// Result describes one processed attempt. It is returned by the worker's per-job step
// and handed to the Observer; it never influences control flow.
type Result struct {
	Envelope *Envelope
	WorkerID string
	Outcome  Outcome
	// Attempt is the 1-based number of the attempt that just ran.
	Attempt  int
	Err      error
	Duration time.Duration
	// RetryIn is the visibility delay applied when Outcome is OutcomeRetrying.
	RetryIn time.Duration
	// BrokerErr is set when the outcome could not be recorded in the broker.
	BrokerErr error
}

// Observer receives job lifecycle signals for logging and metrics.
// Implementations must be safe for concurrent use and must not block for long.
type Observer interface {
	JobStarted(ctx context.Context, env *Envelope, workerID string)
	JobFinished(ctx context.Context, res Result)
}

// Observers fans signals out to several observers.
type Observers []Observer

// JobStarted implements Observer.
func (o Observers) JobStarted(ctx context.Context, env *Envelope, workerID string) {
	for _, obs := range o {
		if obs != nil {
			obs.JobStarted(ctx, env, workerID)
		}
	}
}

// JobFinished implements Observer.
func (o Observers) JobFinished(ctx context.Context, res Result) {
	for _, obs := range o {
		if obs != nil {
			obs.JobFinished(ctx, res)
		}
	}
}

// LogObserver writes lifecycle signals to a structured logger.
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver returns an observer logging to logger, or slog.Default when nil.
func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{logger: logger}
}

// JobStarted implements Observer.
func (o *LogObserver) JobStarted(ctx context.Context, env *Envelope, workerID string) {
	o.logger.DebugContext(ctx, "job started",
		logger.WorkerID(workerID),
		logger.JobID(env.ID.String()),
		logger.JobType(env.Type),
		logger.Attempt(env.AttemptCount+1, env.MaxAttempts))
}

// JobFinished implements Observer.
func (o *LogObserver) JobFinished(ctx context.Context, res Result) {
	attrs := []any{
		logger.WorkerID(res.WorkerID),
		logger.JobID(res.Envelope.ID.String()),
		logger.JobType(res.Envelope.Type),
		logger.Attempt(res.Attempt, res.Envelope.MaxAttempts),
		logger.Duration(res.Duration),
		logger.Error(res.Err),
	}
	if res.BrokerErr != nil {
		attrs = append(attrs, slog.Any("broker_error", res.BrokerErr))
	}

	switch res.Outcome {
	case OutcomeCompleted:
		o.logger.InfoContext(ctx, "job completed", attrs...)
	case OutcomeRetrying:
		attrs = append(attrs, slog.Duration("retry_in", res.RetryIn))
		o.logger.ErrorContext(ctx, "job failed, will retry", attrs...)
	case OutcomeFailed:
		o.logger.WarnContext(ctx, "job permanently failed", attrs...)
	}
}

// Stats counts lifecycle signals. The zero value is ready to use.
type Stats struct {
	started   atomic.Int64
	completed atomic.Int64
	retried   atomic.Int64
	failed    atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Started   int64 `json:"started"`
	Completed int64 `json:"completed"`
	Retried   int64 `json:"retried"`
	Failed    int64 `json:"failed"`
}

// JobStarted implements Observer.
func (s *Stats) JobStarted(context.Context, *Envelope, string) {
	s.started.Add(1)
}

// JobFinished implements Observer.
func (s *Stats) JobFinished(_ context.Context, res Result) {
	switch res.Outcome {
	case OutcomeCompleted:
		s.completed.Add(1)
	case OutcomeRetrying:
		s.retried.Add(1)
	case OutcomeFailed:
		s.failed.Add(1)
	}
}

// Snapshot returns the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Started:   s.started.Load(),
		Completed: s.completed.Load(),
		Retried:   s.retried.Load(),
		Failed:    s.failed.Load(),
	}
}

package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/schedkit/pkg/logger"
)

// outcomeTimeout bounds the Ack or Nack that records a finished attempt.
const outcomeTimeout = 10 * time.Second

// Handler executes a claimed envelope. A nil error acks the job; any error is a failed attempt.
type Handler interface {
	Handle(ctx context.Context, env *Envelope) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, env *Envelope) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, env *Envelope) error {
	return f(ctx, env)
}

// Worker claims jobs from a broker and runs them through a handler.
// Each worker runs a fixed number of loop instances; a claimed job is owned by exactly one of them.
type Worker struct {
	broker   Broker
	handler  Handler
	workerID string

	// Configuration
	concurrency     int
	pollInterval    time.Duration
	maxPollBackoff  time.Duration
	leaseTimeout    time.Duration
	shutdownTimeout time.Duration
	retry           RetryPolicy
	observer        Observer
	logger          *slog.Logger

	// State management
	mu     sync.Mutex
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewWorker creates a new job worker
func NewWorker(broker Broker, handler Handler, opts ...WorkerOption) (*Worker, error) {
	if broker == nil {
		return nil, ErrBrokerNil
	}
	if handler == nil {
		return nil, ErrHandlerNil
	}

	// Default options
	options := &workerOptions{
		concurrency:     1,
		pollInterval:    time.Second,
		maxPollBackoff:  30 * time.Second,
		leaseTimeout:    5 * time.Minute,
		shutdownTimeout: 30 * time.Second,
		retry:           DefaultRetryPolicy(),
		logger:          slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		opt(options)
	}

	if options.observer == nil {
		options.observer = NewLogObserver(options.logger)
	}

	workerID := options.workerID
	if workerID == "" {
		hostname, _ := os.Hostname()
		workerID = fmt.Sprintf("%s-%d-%s", hostname, os.Getpid(), uuid.NewString()[:8])
	}

	return &Worker{
		broker:          broker,
		handler:         handler,
		workerID:        workerID,
		concurrency:     options.concurrency,
		pollInterval:    options.pollInterval,
		maxPollBackoff:  options.maxPollBackoff,
		leaseTimeout:    options.leaseTimeout,
		shutdownTimeout: options.shutdownTimeout,
		retry:           options.retry,
		observer:        options.observer,
		logger:          options.logger,
	}, nil
}

// ID returns the worker identifier used as lease owner prefix.
func (w *Worker) ID() string {
	return w.workerID
}

// Start launches the loop instances in the background
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		return ErrWorkerStarted
	}

	ctx, w.cancel = context.WithCancel(ctx)

	for i := range w.concurrency {
		slotID := fmt.Sprintf("%s/%d", w.workerID, i)
		w.wg.Add(1)
		go w.loop(ctx, slotID)
	}

	w.logger.Info("worker started",
		logger.WorkerID(w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("poll_interval", w.pollInterval),
		slog.Duration("lease_timeout", w.leaseTimeout))

	return nil
}

// Stop stops claiming new jobs and waits for in-flight ones to finish.
// Jobs still running after the shutdown timeout are recovered by lease expiry.
func (w *Worker) Stop() error {
	w.mu.Lock()
	if w.cancel == nil {
		w.mu.Unlock()
		return ErrWorkerNotStarted
	}
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	cancel()

	w.logger.Info("worker stopping, waiting for active jobs to complete",
		logger.WorkerID(w.workerID))

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(w.shutdownTimeout):
		w.logger.Warn("worker shutdown timed out, leases will expire",
			logger.WorkerID(w.workerID),
			slog.Duration("timeout", w.shutdownTimeout))
		return ErrShutdownTimeout
	}

	w.logger.Info("worker stopped", logger.WorkerID(w.workerID))
	return nil
}

// Run starts the worker and returns a function suitable for errgroup
func (w *Worker) Run(ctx context.Context) func() error {
	return func() error {
		if err := w.Start(ctx); err != nil {
			return err
		}

		<-ctx.Done()

		return w.Stop()
	}
}

// ProcessNext claims and processes a single job as this worker.
// Returns ErrNoJob when the broker has nothing to hand out.
func (w *Worker) ProcessNext(ctx context.Context) (Result, error) {
	return w.processNext(ctx, w.workerID)
}

// loop is one processing slot; it polls while idle and backs off while the broker is unreachable.
func (w *Worker) loop(ctx context.Context, slotID string) {
	defer w.wg.Done()

	failures := 0
	for {
		if ctx.Err() != nil {
			return
		}

		_, err := w.processNext(ctx, slotID)
		switch {
		case err == nil:
			failures = 0
			continue
		case errors.Is(err, ErrNoJob):
			failures = 0
			if !sleep(ctx, w.pollInterval) {
				return
			}
		case ctx.Err() != nil:
			return
		default:
			failures++
			delay := w.pollBackoff(failures)
			w.logger.Warn("failed to poll broker",
				logger.WorkerID(slotID),
				slog.Int("consecutive_failures", failures),
				slog.Duration("retry_in", delay),
				logger.Error(err))
			if !sleep(ctx, delay) {
				return
			}
		}
	}
}

func (w *Worker) processNext(ctx context.Context, slotID string) (Result, error) {
	env, err := w.broker.Claim(ctx, slotID, w.leaseTimeout)
	if err != nil {
		if errors.Is(err, ErrNoJob) {
			return Result{}, ErrNoJob
		}
		return Result{}, errors.Join(ErrFailedToClaim, err)
	}
	if env == nil {
		return Result{}, ErrNoJob
	}

	// The job outlives worker shutdown so a graceful stop lets it finish; the lease bounds it.
	jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.leaseTimeout)
	jobCtx = logger.ContextWithJobID(jobCtx, env.ID.String())
	defer cancel()

	return w.process(jobCtx, slotID, env), nil
}

// process runs the handler and records the outcome in the broker.
func (w *Worker) process(ctx context.Context, slotID string, env *Envelope) Result {
	w.observer.JobStarted(ctx, env, slotID)

	start := time.Now()
	execErr := w.execute(ctx, env)

	res := Result{
		Envelope: env,
		WorkerID: slotID,
		Attempt:  env.AttemptCount + 1,
		Err:      execErr,
		Duration: time.Since(start),
	}

	// The handler may have used up the job context; the outcome must still be stored.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), outcomeTimeout)
	defer cancel()

	if execErr == nil {
		res.Outcome = OutcomeCompleted
		if err := w.broker.Ack(recordCtx, env.ID, slotID); err != nil {
			res.BrokerErr = fmt.Errorf("failed to ack job %s: %w", env.ID, err)
		}
		w.observer.JobFinished(ctx, res)
		return res
	}

	params := w.retry.Decide(env, execErr)
	if params.Retry {
		res.Outcome = OutcomeRetrying
		res.RetryIn = params.Delay
	} else {
		res.Outcome = OutcomeFailed
	}
	if err := w.broker.Nack(recordCtx, env.ID, slotID, params); err != nil {
		res.BrokerErr = fmt.Errorf("failed to nack job %s: %w", env.ID, err)
	}

	w.observer.JobFinished(ctx, res)
	return res
}

// execute calls the handler, turning a panic into a failed attempt.
func (w *Worker) execute(ctx context.Context, env *Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return w.handler.Handle(ctx, env)
}

func (w *Worker) pollBackoff(failures int) time.Duration {
	delay := w.pollInterval
	for i := 1; i < failures && delay < w.maxPollBackoff; i++ {
		delay *= 2
	}
	return min(delay, w.maxPollBackoff)
}

// WorkerInfo returns information about the worker
func (w *Worker) WorkerInfo() (id string, hostname string, pid int) {
	hostname, _ = os.Hostname()
	return w.workerID, hostname, os.Getpid()
}

// sleep waits for d or until ctx is done. It reports whether the full duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

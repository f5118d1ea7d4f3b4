package queue

import (
	"log/slog"
	"time"
)

// WorkerOption is a functional option for configuring a worker
type WorkerOption func(*workerOptions)

type workerOptions struct {
	workerID        string
	concurrency     int
	pollInterval    time.Duration
	maxPollBackoff  time.Duration
	leaseTimeout    time.Duration
	shutdownTimeout time.Duration
	retry           RetryPolicy
	observer        Observer
	logger          *slog.Logger
}

// WithWorkerID sets the lease owner prefix; defaults to hostname-pid-random
func WithWorkerID(id string) WorkerOption {
	return func(o *workerOptions) {
		if id != "" {
			o.workerID = id
		}
	}
}

// WithConcurrency sets the number of loop instances processing jobs in parallel
func WithConcurrency(n int) WorkerOption {
	return func(o *workerOptions) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithPollInterval sets how long an idle loop waits before claiming again
func WithPollInterval(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithMaxPollBackoff caps the delay between polls while the broker is unreachable
func WithMaxPollBackoff(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.maxPollBackoff = d
		}
	}
}

// WithLeaseTimeout sets how long a claimed job stays invisible to other workers
func WithLeaseTimeout(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.leaseTimeout = d
		}
	}
}

// WithShutdownTimeout bounds how long Stop waits for active jobs
func WithShutdownTimeout(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.shutdownTimeout = d
		}
	}
}

// WithRetryPolicy sets the retry policy applied on failed attempts
func WithRetryPolicy(p RetryPolicy) WorkerOption {
	return func(o *workerOptions) {
		o.retry = p
	}
}

// WithObserver sets the sink for job lifecycle signals
func WithObserver(obs Observer) WorkerOption {
	return func(o *workerOptions) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithWorkerLogger sets the logger for the worker
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(o *workerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithConfig applies the worker related values of cfg
func WithConfig(cfg Config) WorkerOption {
	return func(o *workerOptions) {
		WithConcurrency(cfg.Concurrency)(o)
		WithPollInterval(cfg.PollInterval)(o)
		WithLeaseTimeout(cfg.LeaseTimeout)(o)
		WithShutdownTimeout(cfg.ShutdownTimeout)(o)
		o.retry = cfg.RetryPolicy()
	}
}

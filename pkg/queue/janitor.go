package queue

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dmitrymomot/schedkit/pkg/logger"
)

// Janitor periodically prunes completed jobs older than the retention window.
// Permanently failed jobs are left alone so operators can inspect and replay them.
type Janitor struct {
	pruner    Pruner
	retention time.Duration
	schedule  cron.Schedule
	logger    *slog.Logger
	now       func() time.Time
}

// NewJanitor parses spec (standard 5-field cron or a descriptor such as "@hourly").
func NewJanitor(pruner Pruner, spec string, retention time.Duration, log *slog.Logger) (*Janitor, error) {
	if pruner == nil {
		return nil, ErrBrokerNil
	}
	if log == nil {
		log = slog.Default()
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, errors.Join(ErrInvalidSchedule, err)
	}

	return &Janitor{
		pruner:    pruner,
		retention: retention,
		schedule:  schedule,
		logger:    log,
		now:       time.Now,
	}, nil
}

// PruneOnce removes completed jobs older than the retention window.
func (j *Janitor) PruneOnce(ctx context.Context) (int, error) {
	cutoff := j.now().Add(-j.retention)
	n, err := j.pruner.PruneCompleted(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		j.logger.InfoContext(ctx, "pruned completed jobs",
			slog.Int("count", n),
			slog.Time("cutoff", cutoff))
	}
	return n, nil
}

// Run returns a function suitable for errgroup; it prunes on schedule until ctx is done.
func (j *Janitor) Run(ctx context.Context) func() error {
	return func() error {
		c := cron.New(cron.WithLocation(time.UTC))
		c.Schedule(j.schedule, cron.FuncJob(func() {
			if _, err := j.PruneOnce(ctx); err != nil && ctx.Err() == nil {
				j.logger.ErrorContext(ctx, "failed to prune completed jobs", logger.Error(err))
			}
		}))
		c.Start()

		<-ctx.Done()
		<-c.Stop().Done()
		return nil
	}
}

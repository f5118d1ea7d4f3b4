package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/schedkit/pkg/logger"
	"github.com/dmitrymomot/schedkit/pkg/queue"
	"github.com/dmitrymomot/schedkit/pkg/transport"
)

var _ queue.Handler = (*Pipeline)(nil)

// Pipeline is the worker-side handler: decode, render, deliver.
// Every step runs on every attempt; nothing rendered is cached between attempts.
type Pipeline struct {
	transport transport.Transport
	renderer  Renderer
	timeout   time.Duration
	logger    *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithDeliveryTimeout bounds a single Deliver call. Zero disables the bound.
func WithDeliveryTimeout(d time.Duration) PipelineOption {
	return func(p *Pipeline) { p.timeout = d }
}

// WithRenderer replaces the default renderer.
func WithRenderer(r Renderer) PipelineOption {
	return func(p *Pipeline) { p.renderer = r }
}

// WithPipelineLogger sets the logger.
func WithPipelineLogger(l *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPipeline creates a pipeline delivering through t.
func NewPipeline(t transport.Transport, opts ...PipelineOption) (*Pipeline, error) {
	if t == nil {
		return nil, ErrTransportNil
	}

	p := &Pipeline{
		transport: t,
		renderer:  NewRenderer(""),
		timeout:   10 * time.Second,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Handle implements queue.Handler. Any error, including an unknown job type,
// is an attempt failure for the retry policy to judge.
func (p *Pipeline) Handle(ctx context.Context, env *queue.Envelope) error {
	payload, err := Decode(env.Type, env.Payload)
	if err != nil {
		return err
	}

	msg, err := p.renderer.Render(ctx, payload)
	if err != nil {
		return err
	}
	msg.IdempotencyKey = env.ID.String()

	deliverCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		deliverCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	receipt, err := p.transport.Deliver(deliverCtx, env.Target, msg)
	if err != nil {
		if errors.Is(deliverCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return errors.Join(ErrDeliveryTimeout, fmt.Errorf("after %s: %w", p.timeout, err))
		}
		return err
	}

	p.logger.InfoContext(ctx, "notification delivered",
		logger.JobType(env.Type),
		logger.Target(env.Target),
		logger.Provider(receipt.Provider),
		logger.MessageID(receipt.MessageID),
		logger.Duration(time.Since(start)))
	return nil
}

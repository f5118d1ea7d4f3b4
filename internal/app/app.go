package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/schedkit/pkg/admin"
	"github.com/dmitrymomot/schedkit/pkg/httpserver"
	"github.com/dmitrymomot/schedkit/pkg/logger"
	"github.com/dmitrymomot/schedkit/pkg/notify"
	"github.com/dmitrymomot/schedkit/pkg/queue"
	"github.com/dmitrymomot/schedkit/pkg/transport"
)

// App owns every long-lived component of the daemon. Components are built once
// and injected; nothing is reachable through package globals.
type App struct {
	cfg    Config
	log    *slog.Logger
	broker *Broker

	Producer *queue.Producer
	Notifier *notify.Notifier
	Stats    *queue.Stats

	worker    *queue.Worker
	janitor   *queue.Janitor
	server    *httpserver.Server
	handler   http.Handler
	listening chan struct{}

	closeOnce sync.Once
}

// Option customises New, mainly for tests.
type Option func(*options)

type options struct {
	broker    *Broker
	transport transport.Transport
}

// WithBroker uses an already opened broker instead of BROKER_DRIVER.
func WithBroker(b *Broker) Option {
	return func(o *options) { o.broker = b }
}

// WithTransport replaces the transport selected by NOTIFY_TRANSPORT.
func WithTransport(t transport.Transport) Option {
	return func(o *options) { o.transport = t }
}

// New validates cfg and wires the broker, delivery pipeline, worker, janitor and
// admin server.
func New(ctx context.Context, cfg Config, log *slog.Logger, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	broker := o.broker
	if broker == nil {
		var err error
		if broker, err = OpenBroker(ctx, cfg.Broker, log); err != nil {
			return nil, err
		}
	}

	a, err := build(cfg, log, broker, o.transport)
	if err != nil {
		_ = broker.Close(context.WithoutCancel(ctx))
		return nil, err
	}
	return a, nil
}

func build(cfg Config, log *slog.Logger, broker *Broker, t transport.Transport) (*App, error) {
	if t == nil {
		var err error
		if t, err = transport.New(cfg.Transport, log); err != nil {
			return nil, err
		}
	}

	producer, err := queue.NewProducer(broker.Store, queue.WithDefaultMaxAttempts(cfg.Queue.MaxAttempts))
	if err != nil {
		return nil, err
	}
	notifier, err := notify.NewNotifier(producer, log)
	if err != nil {
		return nil, err
	}

	pipeline, err := notify.NewPipeline(t, append(cfg.Notify.PipelineOptions(), notify.WithPipelineLogger(log))...)
	if err != nil {
		return nil, err
	}

	stats := &queue.Stats{}
	worker, err := queue.NewWorker(broker.Store, pipeline,
		queue.WithConfig(cfg.Queue),
		queue.WithWorkerLogger(log),
		queue.WithObserver(queue.Observers{queue.NewLogObserver(log), stats}),
	)
	if err != nil {
		return nil, err
	}

	janitor, err := queue.NewJanitor(broker.Store, cfg.Queue.RetentionSchedule, cfg.Queue.CompletedRetention, log)
	if err != nil {
		return nil, err
	}

	adm, err := admin.New(broker.Store,
		admin.WithLogger(log),
		admin.WithStats(stats),
		admin.WithSubmitter(notifier),
		admin.WithChecks(broker.Checks...),
	)
	if err != nil {
		return nil, err
	}

	listening := make(chan struct{})
	server := httpserver.NewFromConfig(cfg.Admin,
		httpserver.WithLogger(log),
		httpserver.WithListenHook(func(string) { close(listening) }),
	)

	return &App{
		cfg:       cfg,
		log:       log,
		broker:    broker,
		Producer:  producer,
		Notifier:  notifier,
		Stats:     stats,
		worker:    worker,
		janitor:   janitor,
		server:    server,
		handler:   adm.Handle(),
		listening: listening,
	}, nil
}

// Handler returns the admin router.
func (a *App) Handler() http.Handler { return a.handler }

// AdminAddr returns the admin listen address. Once Run reports ready it is the
// bound address, with the real port when ADMIN_ADDR asked for port 0.
func (a *App) AdminAddr() string { return a.server.Addr() }

// Run starts the worker, janitor and admin server and blocks until ctx is
// cancelled or one of them fails. ready, if set, is called once the admin
// server accepts connections.
func (a *App) Run(ctx context.Context, ready func()) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(a.worker.Run(gctx))
	g.Go(a.janitor.Run(gctx))
	g.Go(func() error { return a.server.Run(gctx, a.handler) })

	select {
	case <-a.listening:
		a.log.InfoContext(ctx, "notification daemon started",
			logger.WorkerID(a.worker.ID()),
			logger.Component("app"),
			slog.String("broker", a.cfg.Broker),
			slog.String("transport", a.cfg.Transport.Driver),
			slog.String("admin_addr", a.AdminAddr()),
		)
		if ready != nil {
			ready()
		}
	case <-gctx.Done():
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return err
}

// Close releases the broker connection. Safe to call more than once.
func (a *App) Close(ctx context.Context) error {
	var err error
	a.closeOnce.Do(func() {
		err = a.broker.Close(ctx)
	})
	return err
}

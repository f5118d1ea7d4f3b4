package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/schedkit/pkg/config"
	"github.com/dmitrymomot/schedkit/pkg/httpserver"
	"github.com/dmitrymomot/schedkit/pkg/logger"
	"github.com/dmitrymomot/schedkit/pkg/mongo"
	"github.com/dmitrymomot/schedkit/pkg/pg"
	"github.com/dmitrymomot/schedkit/pkg/queue"
	"github.com/dmitrymomot/schedkit/pkg/queue/mongobroker"
	"github.com/dmitrymomot/schedkit/pkg/queue/pgbroker"
	"github.com/dmitrymomot/schedkit/pkg/queue/redisbroker"
	"github.com/dmitrymomot/schedkit/pkg/redis"
)

// Broker is an opened queue store with its readiness probes.
type Broker struct {
	Store  queue.Store
	Checks []httpserver.Check
	close  func(context.Context) error
}

// Close releases the underlying connection.
func (b *Broker) Close(ctx context.Context) error {
	if b == nil || b.close == nil {
		return nil
	}
	return b.close(ctx)
}

// OpenBroker connects the store selected by driver. Connection settings are
// read from the environment for that driver only.
func OpenBroker(ctx context.Context, driver string, log *slog.Logger) (*Broker, error) {
	var (
		b   *Broker
		err error
	)
	switch driver {
	case DriverMemory:
		b = &Broker{Store: queue.NewMemoryBroker()}
	case DriverRedis:
		b, err = openRedis(ctx)
	case DriverPostgres:
		b, err = openPostgres(ctx, log)
	case DriverMongo:
		b, err = openMongo(ctx)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
	if err != nil {
		return nil, errors.Join(ErrBrokerConnect, fmt.Errorf("driver %s: %w", driver, err))
	}

	log.InfoContext(ctx, "broker ready", logger.Component("broker"), slog.String("driver", driver))
	return b, nil
}

func openRedis(ctx context.Context) (*Broker, error) {
	var cfg redis.Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}
	client, err := redis.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store, err := redisbroker.New(client)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return &Broker{
		Store:  store,
		Checks: []httpserver.Check{{Name: "redis", Probe: redis.Healthcheck(client)}},
		close:  func(context.Context) error { return client.Close() },
	}, nil
}

func openPostgres(ctx context.Context, log *slog.Logger) (*Broker, error) {
	var cfg pg.Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}
	pool, err := pg.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pgbroker.Migrate(ctx, pool, cfg, log); err != nil {
		pool.Close()
		return nil, err
	}
	store, err := pgbroker.New(pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &Broker{
		Store:  store,
		Checks: []httpserver.Check{{Name: "postgres", Probe: pg.Healthcheck(pool)}},
		close: func(context.Context) error {
			pool.Close()
			return nil
		},
	}, nil
}

func openMongo(ctx context.Context) (*Broker, error) {
	var cfg mongo.Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}
	client, err := mongo.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store, err := mongobroker.New(client.Database(cfg.Database))
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	if err := store.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return &Broker{
		Store:  store,
		Checks: []httpserver.Check{{Name: "mongo", Probe: mongo.Healthcheck(client)}},
		close:  client.Disconnect,
	}, nil
}

package redisbroker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/schedkit/pkg/queue"
)

var _ queue.Store = (*Broker)(nil)

// Broker is a queue.Store backed by Redis.
//
// Each job is a hash; sorted sets index it by state. Every state transition runs as
// a Lua script, so claim, ack and nack are atomic on the server. Scripts derive job keys
// from the prefix, so on Redis Cluster the prefix must carry a hash tag that pins every
// key to one slot.
type Broker struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// New creates a Redis broker.
func New(client redis.UniversalClient, opts ...Option) (*Broker, error) {
	if client == nil {
		return nil, ErrClientNil
	}

	options := &brokerOptions{
		prefix: DefaultKeyPrefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(options)
	}
	if _, ok := client.(*redis.ClusterClient); ok && !hasHashTag(options.prefix) {
		return nil, fmt.Errorf("%w: %q", ErrPrefixNotHashTagged, options.prefix)
	}

	return &Broker{
		client: client,
		prefix: options.prefix,
		now:    options.now,
	}, nil
}

// Enqueue implements queue.Broker.
func (b *Broker) Enqueue(ctx context.Context, env *queue.Envelope) error {
	if err := env.Validate(); err != nil {
		return err
	}

	stored := env.Clone()
	stored.Status = queue.StatusPending
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = b.now().UTC()
	}
	if stored.AvailableAt.IsZero() {
		stored.AvailableAt = stored.CreatedAt
	}

	rec := toRecord(stored)
	args := append([]any{rec.ID, rec.AvailableAt}, rec.args()...)

	created, err := enqueueScript.Run(ctx, b.client, []string{b.jobKey(rec.ID), b.pendingKey()}, args...).Int()
	if err != nil {
		return errors.Join(ErrScriptFailed, err)
	}
	if created == 0 {
		return fmt.Errorf("%w: %s", queue.ErrDuplicateJob, env.ID)
	}
	return nil
}

// Claim implements queue.Broker.
func (b *Broker) Claim(ctx context.Context, workerID string, lease time.Duration) (*queue.Envelope, error) {
	now := b.now()
	id, err := claimScript.Run(ctx, b.client,
		[]string{b.pendingKey(), b.inflightKey()},
		now.UnixMilli(), now.Add(lease).UnixMilli(), workerID, b.jobKey(""),
	).Text()
	if errors.Is(err, redis.Nil) {
		return nil, queue.ErrNoJob
	}
	if err != nil {
		return nil, errors.Join(ErrScriptFailed, err)
	}

	return b.load(ctx, id)
}

// Ack implements queue.Broker.
func (b *Broker) Ack(ctx context.Context, id uuid.UUID, workerID string) error {
	key := id.String()
	code, err := ackScript.Run(ctx, b.client,
		[]string{b.jobKey(key), b.inflightKey(), b.completedKey()},
		key, b.now().UnixMilli(), workerID,
	).Int()
	if err != nil {
		return errors.Join(ErrScriptFailed, err)
	}
	return transitionError(code, id)
}

// Nack implements queue.Broker.
func (b *Broker) Nack(ctx context.Context, id uuid.UUID, workerID string, params queue.NackParams) error {
	key := id.String()
	now := b.now()

	retry := "0"
	if params.Retry {
		retry = "1"
	}

	code, err := nackScript.Run(ctx, b.client,
		[]string{b.jobKey(key), b.pendingKey(), b.inflightKey(), b.failedKey()},
		key, now.UnixMilli(), retry, now.Add(params.Delay).UnixMilli(), params.Reason, workerID,
	).Int()
	if err != nil {
		return errors.Join(ErrScriptFailed, err)
	}
	return transitionError(code, id)
}

// Get implements queue.Inspector.
func (b *Broker) Get(ctx context.Context, id uuid.UUID) (*queue.Envelope, error) {
	return b.load(ctx, id.String())
}

// ListFailed implements queue.Inspector.
func (b *Broker) ListFailed(ctx context.Context, limit int) ([]*queue.Envelope, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}

	ids, err := b.client.ZRevRange(ctx, b.failedKey(), 0, stop).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*queue.Envelope{}, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	if _, err := b.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, b.jobKey(id))
		}
		return nil
	}); err != nil {
		return nil, err
	}

	envs := make([]*queue.Envelope, 0, len(ids))
	for _, cmd := range cmds {
		// Pruned or deleted between the two calls.
		if len(cmd.Val()) == 0 {
			continue
		}
		env, err := scan(cmd)
		if err != nil {
			return nil, err
		}
		envs = append(envs, env)
	}
	return envs, nil
}

// Replay implements queue.Inspector.
func (b *Broker) Replay(ctx context.Context, id uuid.UUID) (*queue.Envelope, error) {
	src, err := b.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if src.Status != queue.StatusFailedPermanent {
		return nil, fmt.Errorf("%w: %s is %s", queue.ErrNotFailed, id, src.Status)
	}

	env := queue.Replay(src)
	if err := b.Enqueue(ctx, env); err != nil {
		return nil, err
	}
	return env, nil
}

// PruneCompleted implements queue.Pruner.
func (b *Broker) PruneCompleted(ctx context.Context, before time.Time) (int, error) {
	n, err := pruneScript.Run(ctx, b.client, []string{b.completedKey()}, before.UnixMilli(), b.jobKey("")).Int()
	if err != nil {
		return 0, errors.Join(ErrScriptFailed, err)
	}
	return n, nil
}

func (b *Broker) load(ctx context.Context, id string) (*queue.Envelope, error) {
	cmd := b.client.HGetAll(ctx, b.jobKey(id))
	if err := cmd.Err(); err != nil {
		return nil, err
	}
	if len(cmd.Val()) == 0 {
		return nil, fmt.Errorf("%w: %s", queue.ErrJobNotFound, id)
	}
	return scan(cmd)
}

func scan(cmd *redis.MapStringStringCmd) (*queue.Envelope, error) {
	var rec record
	if err := cmd.Scan(&rec); err != nil {
		return nil, errors.Join(ErrCorruptRecord, err)
	}
	return rec.envelope()
}

func transitionError(code int, id uuid.UUID) error {
	switch code {
	case codeOK, codeFailed:
		return nil
	case codeNotFound:
		return fmt.Errorf("%w: %s", queue.ErrJobNotFound, id)
	case codeNotInFlight:
		return fmt.Errorf("%w: %s", queue.ErrNotInFlight, id)
	case codeLeaseLost:
		return fmt.Errorf("%w: %s is leased to another worker", queue.ErrNotInFlight, id)
	}
	return fmt.Errorf("%w: unexpected script result %d", ErrScriptFailed, code)
}

// hasHashTag reports whether keys built from prefix hash on a non-empty {tag}.
func hasHashTag(prefix string) bool {
	start := strings.IndexByte(prefix, '{')
	if start < 0 {
		return false
	}
	return strings.IndexByte(prefix[start+1:], '}') > 0
}

func (b *Broker) jobKey(id string) string { return b.prefix + ":job:" + id }
func (b *Broker) pendingKey() string      { return b.prefix + ":pending" }
func (b *Broker) inflightKey() string     { return b.prefix + ":inflight" }
func (b *Broker) completedKey() string    { return b.prefix + ":completed" }
func (b *Broker) failedKey() string       { return b.prefix + ":failed" }

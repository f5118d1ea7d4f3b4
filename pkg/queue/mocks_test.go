package queue_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/schedkit/pkg/queue"
)

type mockBroker struct {
	mock.Mock
}

func (m *mockBroker) Enqueue(ctx context.Context, env *queue.Envelope) error {
	args := m.Called(ctx, env)
	return args.Error(0)
}

func (m *mockBroker) Claim(ctx context.Context, workerID string, lease time.Duration) (*queue.Envelope, error) {
	args := m.Called(ctx, workerID, lease)
	env, _ := args.Get(0).(*queue.Envelope)
	return env, args.Error(1)
}

func (m *mockBroker) Ack(ctx context.Context, id uuid.UUID, workerID string) error {
	args := m.Called(ctx, id, workerID)
	return args.Error(0)
}

func (m *mockBroker) Nack(ctx context.Context, id uuid.UUID, workerID string, params queue.NackParams) error {
	args := m.Called(ctx, id, workerID, params)
	return args.Error(0)
}

type mockPruner struct {
	mock.Mock
}

func (m *mockPruner) PruneCompleted(ctx context.Context, before time.Time) (int, error) {
	args := m.Called(ctx, before)
	return args.Int(0), args.Error(1)
}

// countingBroker wraps a broker and counts acks and nacks per envelope.
type countingBroker struct {
	queue.Broker

	mu    sync.Mutex
	acks  map[uuid.UUID]int
	nacks map[uuid.UUID]int
}

func newCountingBroker(b queue.Broker) *countingBroker {
	return &countingBroker{
		Broker: b,
		acks:   make(map[uuid.UUID]int),
		nacks:  make(map[uuid.UUID]int),
	}
}

func (c *countingBroker) Ack(ctx context.Context, id uuid.UUID, workerID string) error {
	c.mu.Lock()
	c.acks[id]++
	c.mu.Unlock()
	return c.Broker.Ack(ctx, id, workerID)
}

func (c *countingBroker) Nack(ctx context.Context, id uuid.UUID, workerID string, params queue.NackParams) error {
	c.mu.Lock()
	c.nacks[id]++
	c.mu.Unlock()
	return c.Broker.Nack(ctx, id, workerID, params)
}

// strictBroker refuses calls on a finished context, as network brokers do.
type strictBroker struct {
	queue.Broker
}

func (s strictBroker) Ack(ctx context.Context, id uuid.UUID, workerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Broker.Ack(ctx, id, workerID)
}

func (s strictBroker) Nack(ctx context.Context, id uuid.UUID, workerID string, params queue.NackParams) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Broker.Nack(ctx, id, workerID, params)
}

func (c *countingBroker) counts(id uuid.UUID) (acks, nacks int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.acks[id], c.nacks[id]
}

// recordingObserver keeps every finished result in order.
type recordingObserver struct {
	mu      sync.Mutex
	started int
	results []queue.Result
}

func (r *recordingObserver) JobStarted(context.Context, *queue.Envelope, string) {
	r.mu.Lock()
	r.started++
	r.mu.Unlock()
}

func (r *recordingObserver) JobFinished(_ context.Context, res queue.Result) {
	r.mu.Lock()
	r.results = append(r.results, res)
	r.mu.Unlock()
}

func (r *recordingObserver) outcomes() []queue.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]queue.Outcome, 0, len(r.results))
	for _, res := range r.results {
		out = append(out, res.Outcome)
	}
	return out
}

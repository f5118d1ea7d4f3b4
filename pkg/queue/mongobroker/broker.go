package mongobroker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/schedkit/pkg/queue"
)

var _ queue.Store = (*Broker)(nil)

// Broker is a queue.Store backed by a MongoDB collection.
type Broker struct {
	coll *mongo.Collection
	now  func() time.Time
}

// New creates a MongoDB broker. Call EnsureIndexes once at startup.
func New(db *mongo.Database, opts ...Option) (*Broker, error) {
	if db == nil {
		return nil, ErrDatabaseNil
	}

	o := &brokerOptions{
		collection: DefaultCollection,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	return &Broker{
		coll: db.Collection(o.collection),
		now:  o.now,
	}, nil
}

// EnsureIndexes creates the indexes Claim, ListFailed and PruneCompleted rely on.
func (b *Broker) EnsureIndexes(ctx context.Context) error {
	_, err := b.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "available_at", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "locked_until", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "failed_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "completed_at", Value: 1}}},
	})
	return err
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

	if _, err := b.coll.InsertOne(ctx, toDocument(stored)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", queue.ErrDuplicateJob, env.ID)
		}
		return err
	}
	return nil
}

// Claim implements queue.Broker.
// FindOneAndUpdate is atomic per document, so two claimers cannot lease the same job.
func (b *Broker) Claim(ctx context.Context, workerID string, lease time.Duration) (*queue.Envelope, error) {
	now := b.now().UTC()

	filter := bson.M{"$or": bson.A{
		bson.M{"status": string(queue.StatusPending), "available_at": bson.M{"$lte": now}},
		bson.M{"status": string(queue.StatusInFlight), "locked_until": bson.M{"$lte": now}},
	}}
	update := bson.M{"$set": bson.M{
		"status":          string(queue.StatusInFlight),
		"locked_by":       workerID,
		"locked_until":    now.Add(lease),
		"last_attempt_at": now,
	}}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "available_at", Value: 1}, {Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetReturnDocument(options.After)

	var doc document
	err := b.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, queue.ErrNoJob
	}
	if err != nil {
		return nil, err
	}
	return doc.envelope()
}

// Ack implements queue.Broker.
func (b *Broker) Ack(ctx context.Context, id uuid.UUID, workerID string) error {
	res, err := b.coll.UpdateOne(ctx,
		leasedTo(id, workerID),
		bson.M{
			"$set": bson.M{
				"status":       string(queue.StatusCompleted),
				"completed_at": b.now().UTC(),
				"locked_by":    "",
			},
			"$unset": bson.M{"locked_until": ""},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return b.transitionError(ctx, id)
	}
	return nil
}

// Nack implements queue.Broker.
// The pipeline update evaluates every expression against the stored document,
// so the retry decision and the increment happen in one atomic write.
func (b *Broker) Nack(ctx context.Context, id uuid.UUID, workerID string, params queue.NackParams) error {
	now := b.now().UTC()

	attempts := bson.M{"$min": bson.A{bson.M{"$add": bson.A{"$attempt_count", 1}}, "$max_attempts"}}
	retry := bson.M{"$and": bson.A{params.Retry, bson.M{"$lt": bson.A{attempts, "$max_attempts"}}}}

	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "attempt_count", Value: attempts},
			{Key: "last_error", Value: bson.M{"$literal": params.Reason}},
			{Key: "locked_by", Value: ""},
			{Key: "status", Value: bson.M{"$cond": bson.A{retry,
				string(queue.StatusPending), string(queue.StatusFailedPermanent)}}},
			{Key: "available_at", Value: bson.M{"$cond": bson.A{retry, now.Add(params.Delay), "$available_at"}}},
			{Key: "failed_at", Value: bson.M{"$cond": bson.A{retry, "$$REMOVE", now}}},
		}}},
		{{Key: "$unset", Value: "locked_until"}},
	}

	res, err := b.coll.UpdateOne(ctx, leasedTo(id, workerID), pipeline)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return b.transitionError(ctx, id)
	}
	return nil
}

// Get implements queue.Inspector.
func (b *Broker) Get(ctx context.Context, id uuid.UUID) (*queue.Envelope, error) {
	var doc document
	err := b.coll.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", queue.ErrJobNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return doc.envelope()
}

// ListFailed implements queue.Inspector.
func (b *Broker) ListFailed(ctx context.Context, limit int) ([]*queue.Envelope, error) {
	opts := options.Find().SetSort(bson.D{{Key: "failed_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := b.coll.Find(ctx, bson.M{"status": string(queue.StatusFailedPermanent)}, opts)
	if err != nil {
		return nil, err
	}

	var docs []document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	envs := make([]*queue.Envelope, 0, len(docs))
	for _, doc := range docs {
		env, err := doc.envelope()
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
	res, err := b.coll.DeleteMany(ctx, bson.M{
		"status":       string(queue.StatusCompleted),
		"completed_at": bson.M{"$lt": before.UTC()},
	})
	if err != nil {
		return 0, err
	}
	return int(res.DeletedCount), nil
}

// leasedTo matches the envelope only while workerID holds its lease.
func leasedTo(id uuid.UUID, workerID string) bson.M {
	return bson.M{
		"_id":       id.String(),
		"status":    string(queue.StatusInFlight),
		"locked_by": workerID,
	}
}

// transitionError explains why an in-flight update matched nothing.
func (b *Broker) transitionError(ctx context.Context, id uuid.UUID) error {
	var doc struct {
		Status   string `bson:"status"`
		LockedBy string `bson:"locked_by"`
	}
	err := b.coll.FindOne(ctx, bson.M{"_id": id.String()},
		options.FindOne().SetProjection(bson.M{"status": 1, "locked_by": 1}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%w: %s", queue.ErrJobNotFound, id)
	}
	if err != nil {
		return errors.Join(queue.ErrNotInFlight, err)
	}
	if doc.Status == string(queue.StatusInFlight) {
		return fmt.Errorf("%w: %s is leased to %s", queue.ErrNotInFlight, id, doc.LockedBy)
	}
	return fmt.Errorf("%w: %s is %s", queue.ErrNotInFlight, id, doc.Status)
}

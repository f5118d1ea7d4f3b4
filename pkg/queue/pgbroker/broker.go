package pgbroker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/schedkit/pkg/pg"
	"github.com/dmitrymomot/schedkit/pkg/queue"
)

var _ queue.Store = (*Broker)(nil)

// DB is the subset of *pgxpool.Pool the broker uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Broker is a queue.Store backed by the notify_jobs table.
type Broker struct {
	db  DB
	now func() time.Time
}

// New creates a PostgreSQL broker. The schema must be migrated with Migrate first.
func New(db DB, opts ...Option) (*Broker, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	options := &brokerOptions{now: time.Now}
	for _, opt := range opts {
		opt(options)
	}

	return &Broker{db: db, now: options.now}, nil
}

const columns = `id, type, payload, target, attempt_count, max_attempts, status,
	created_at, available_at, last_attempt_at, last_error, locked_by, locked_until,
	completed_at, failed_at, replay_of`

// row mirrors a notify_jobs record.
type row struct {
	ID            uuid.UUID       `db:"id"`
	Type          string          `db:"type"`
	Payload       json.RawMessage `db:"payload"`
	Target        string          `db:"target"`
	AttemptCount  int             `db:"attempt_count"`
	MaxAttempts   int             `db:"max_attempts"`
	Status        string          `db:"status"`
	CreatedAt     time.Time       `db:"created_at"`
	AvailableAt   time.Time       `db:"available_at"`
	LastAttemptAt *time.Time      `db:"last_attempt_at"`
	LastError     string          `db:"last_error"`
	LockedBy      string          `db:"locked_by"`
	LockedUntil   *time.Time      `db:"locked_until"`
	CompletedAt   *time.Time      `db:"completed_at"`
	FailedAt      *time.Time      `db:"failed_at"`
	ReplayOf      *uuid.UUID      `db:"replay_of"`
}

func (r row) envelope() *queue.Envelope {
	return &queue.Envelope{
		ID:            r.ID,
		Type:          queue.JobType(r.Type),
		Payload:       r.Payload,
		Target:        r.Target,
		AttemptCount:  r.AttemptCount,
		MaxAttempts:   r.MaxAttempts,
		Status:        queue.Status(r.Status),
		CreatedAt:     r.CreatedAt.UTC(),
		AvailableAt:   r.AvailableAt.UTC(),
		LastAttemptAt: utc(r.LastAttemptAt),
		LastError:     r.LastError,
		LockedBy:      r.LockedBy,
		LockedUntil:   utc(r.LockedUntil),
		CompletedAt:   utc(r.CompletedAt),
		FailedAt:      utc(r.FailedAt),
		ReplayOf:      r.ReplayOf,
	}
}

// Enqueue implements queue.Broker.
func (b *Broker) Enqueue(ctx context.Context, env *queue.Envelope) error {
	if err := env.Validate(); err != nil {
		return err
	}

	createdAt := env.CreatedAt
	if createdAt.IsZero() {
		createdAt = b.now().UTC()
	}
	availableAt := env.AvailableAt
	if availableAt.IsZero() {
		availableAt = createdAt
	}

	_, err := b.db.Exec(ctx, `
		INSERT INTO notify_jobs (id, type, payload, target, attempt_count, max_attempts, status,
			created_at, available_at, replay_of)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending', $7, $8, $9)`,
		env.ID, string(env.Type), env.Payload, env.Target, env.AttemptCount, env.MaxAttempts,
		createdAt, availableAt, env.ReplayOf,
	)
	if pg.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s", queue.ErrDuplicateJob, env.ID)
	}
	return err
}

// Claim implements queue.Broker.
// SKIP LOCKED lets concurrent claimers pass over a row another transaction is taking.
func (b *Broker) Claim(ctx context.Context, workerID string, lease time.Duration) (*queue.Envelope, error) {
	now := b.now().UTC()

	rows, err := b.db.Query(ctx, `
		UPDATE notify_jobs
		SET status = 'in_flight', locked_by = $1, locked_until = $2, last_attempt_at = $3
		WHERE id = (
			SELECT id FROM notify_jobs
			WHERE (status = 'pending' AND available_at <= $3)
			   OR (status = 'in_flight' AND locked_until <= $3)
			ORDER BY available_at, created_at
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING `+columns,
		workerID, now.Add(lease), now,
	)
	if err != nil {
		return nil, err
	}

	r, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[row])
	if pg.IsNotFoundError(err) {
		return nil, queue.ErrNoJob
	}
	if err != nil {
		return nil, err
	}
	return r.envelope(), nil
}

// Ack implements queue.Broker.
func (b *Broker) Ack(ctx context.Context, id uuid.UUID, workerID string) error {
	tag, err := b.db.Exec(ctx, `
		UPDATE notify_jobs
		SET status = 'completed', completed_at = $2, locked_by = '', locked_until = NULL
		WHERE id = $1 AND status = 'in_flight' AND locked_by = $3`,
		id, b.now().UTC(), workerID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return b.transitionError(ctx, id)
	}
	return nil
}

// Nack implements queue.Broker.
// Right-hand sides of SET see the old row, so every CASE tests the incremented count.
func (b *Broker) Nack(ctx context.Context, id uuid.UUID, workerID string, params queue.NackParams) error {
	now := b.now().UTC()

	tag, err := b.db.Exec(ctx, `
		UPDATE notify_jobs
		SET attempt_count = LEAST(attempt_count + 1, max_attempts),
			last_error = $2,
			locked_by = '',
			locked_until = NULL,
			status = CASE WHEN $3::boolean AND LEAST(attempt_count + 1, max_attempts) < max_attempts
				THEN 'pending' ELSE 'failed_permanent' END,
			available_at = CASE WHEN $3::boolean AND LEAST(attempt_count + 1, max_attempts) < max_attempts
				THEN $4::timestamptz ELSE available_at END,
			failed_at = CASE WHEN $3::boolean AND LEAST(attempt_count + 1, max_attempts) < max_attempts
				THEN failed_at ELSE $5::timestamptz END
		WHERE id = $1 AND status = 'in_flight' AND locked_by = $6`,
		id, params.Reason, params.Retry, now.Add(params.Delay), now, workerID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return b.transitionError(ctx, id)
	}
	return nil
}

// Get implements queue.Inspector.
func (b *Broker) Get(ctx context.Context, id uuid.UUID) (*queue.Envelope, error) {
	rows, err := b.db.Query(ctx, `SELECT `+columns+` FROM notify_jobs WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}

	r, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[row])
	if pg.IsNotFoundError(err) {
		return nil, fmt.Errorf("%w: %s", queue.ErrJobNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return r.envelope(), nil
}

// ListFailed implements queue.Inspector.
func (b *Broker) ListFailed(ctx context.Context, limit int) ([]*queue.Envelope, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}

	rows, err := b.db.Query(ctx, `
		SELECT `+columns+` FROM notify_jobs
		WHERE status = 'failed_permanent'
		ORDER BY failed_at DESC
		LIMIT $1`, lim)
	if err != nil {
		return nil, err
	}

	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[row])
	if err != nil {
		return nil, err
	}

	envs := make([]*queue.Envelope, 0, len(records))
	for _, r := range records {
		envs = append(envs, r.envelope())
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
	tag, err := b.db.Exec(ctx, `
		DELETE FROM notify_jobs WHERE status = 'completed' AND completed_at < $1`,
		before.UTC(),
	)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// transitionError explains why an in-flight update matched no rows.
func (b *Broker) transitionError(ctx context.Context, id uuid.UUID) error {
	var status, lockedBy string
	err := b.db.QueryRow(ctx, `SELECT status, locked_by FROM notify_jobs WHERE id = $1`, id).
		Scan(&status, &lockedBy)
	if pg.IsNotFoundError(err) {
		return fmt.Errorf("%w: %s", queue.ErrJobNotFound, id)
	}
	if err != nil {
		return errors.Join(queue.ErrNotInFlight, err)
	}
	if status == string(queue.StatusInFlight) {
		return fmt.Errorf("%w: %s is leased to %s", queue.ErrNotInFlight, id, lockedBy)
	}
	return fmt.Errorf("%w: %s is %s", queue.ErrNotInFlight, id, status)
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

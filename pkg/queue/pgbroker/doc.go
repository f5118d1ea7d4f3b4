// Package pgbroker implements queue.Store on a PostgreSQL table.
//
// Jobs live in notify_jobs, created by the embedded goose migrations (see Migrate).
// Claim is a single UPDATE over a FOR UPDATE SKIP LOCKED sub-select, so concurrent
// workers never receive the same row and never wait on each other. In-flight rows
// whose lease expired are claimable again.
//
// # Usage
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	if err := pgbroker.Migrate(ctx, pool, cfg, logger); err != nil {
//	    return err
//	}
//	broker, err := pgbroker.New(pool)
package pgbroker

// Package pg provides PostgreSQL helpers built on the pgx/v5 driver: a retrying
// connection pool, goose migrations from an fs.FS, a health check and error
// classification helpers.
//
// # Usage
//
//	var cfg pg.Config
//	if err := env.Parse(&cfg); err != nil {
//	    return err
//	}
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, migrations, slog.Default()); err != nil {
//	    return err
//	}
//
//	health := pg.Healthcheck(pool)
//
// # Configuration
//
// Values are read from PG_* environment variables; see the tags on Config.
//
// # Error Handling
//
// IsNotFoundError and IsDuplicateKeyError unwrap pgx errors so callers can map them
// to their own sentinels.
package pg

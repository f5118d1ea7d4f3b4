package pgbroker

import (
	"context"
	"embed"
	"io/fs"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/schedkit/pkg/pg"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrations returns the schema migrations for the jobs table.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		// The directory is embedded at build time.
		panic(err)
	}
	return sub
}

// Migrate brings the jobs table up to date.
func Migrate(ctx context.Context, pool *pgxpool.Pool, cfg pg.Config, log pg.Logger) error {
	return pg.Migrate(ctx, pool, cfg, Migrations(), log)
}

package sqlstore

import (
	"context"
	"database/sql"
	"embed"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrations embed.FS

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate creates or upgrades the documents table for the dialect.
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect(d.gooseDialect()); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, "migrations/"+d.Name())
}

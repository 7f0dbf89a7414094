package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/doccollection/internal/filex"
	"github.com/dmitrijs2005/doccollection/store"
)

// Driver names in the store registry.
const (
	PostgresDriver = "postgres"
	SQLiteDriver   = "sqlite"
)

func init() {
	_ = store.Register(PostgresDriver, func(ctx context.Context, cfg store.Config) (store.Backend, error) {
		if cfg.DSN == "" {
			return nil, fmt.Errorf("%w: postgres needs a DSN", store.ErrMissingSettings)
		}
		return OpenPostgres(ctx, cfg.DSN)
	})
	_ = store.Register(SQLiteDriver, func(ctx context.Context, cfg store.Config) (store.Backend, error) {
		if cfg.DSN == "" {
			return nil, fmt.Errorf("%w: sqlite needs a file path", store.ErrMissingSettings)
		}
		return OpenSQLite(ctx, cfg.DSN)
	})
}

// OpenPostgres connects with pgx and migrates the schema.
func OpenPostgres(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return migrated(ctx, db, Postgres)
}

// OpenSQLite opens the SQLite file at path and migrates the schema.
// ":memory:" is accepted.
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	if err := filex.EnsureParentDir(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// an in-memory database exists per connection
	db.SetMaxOpenConns(1)
	return migrated(ctx, db, SQLite)
}

func migrated(ctx context.Context, db *sql.DB, d Dialect) (*Store, error) {
	if err := Migrate(ctx, db, d); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate %s: %w", d.Name(), err)
	}
	return New(db, d), nil
}

// Package sqlstore keeps collections in a single "documents" table of a
// relational database, one JSON document per row. PostgreSQL (pgx) and
// SQLite (modernc) are supported through Dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/dmitrijs2005/doccollection/internal/dbx"
	"github.com/dmitrijs2005/doccollection/query"
	"github.com/dmitrijs2005/doccollection/store"
)

// Conn is what Store needs from the database handle. *sql.DB satisfies it.
type Conn interface {
	dbx.DBTX
	dbx.Beginner
	Close() error
}

// Store implements store.Backend over SQL.
type Store struct {
	db Conn
	d  Dialect
}

// New wraps an open database handle. The schema must already be migrated.
func New(db Conn, d Dialect) *Store {
	return &Store{db: db, d: d}
}

func decode(id string, raw []byte) (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", id, err)
	}
	if data == nil {
		data = map[string]any{}
	}
	return data, nil
}

func encode(id string, data map[string]any) ([]byte, error) {
	if data == nil {
		data = map[string]any{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode document %s: %w", id, err)
	}
	return raw, nil
}

// NewID returns a random UUID.
func (s *Store) NewID(string) string {
	return uuid.NewString()
}

func (s *Store) selectOne(ctx context.Context, db dbx.DBTX, collection, id string, lock bool) (map[string]any, error) {
	b := &builder{d: s.d}
	q := "SELECT data FROM documents WHERE collection = " + b.arg(collection) + " AND id = " + b.arg(id)
	if lock {
		q += s.d.forUpdate()
	}

	var raw []byte
	if err := db.QueryRowContext(ctx, q, b.args...).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s/%s", store.ErrNotFound, collection, id)
		}
		return nil, fmt.Errorf("failed to select document: %w", err)
	}
	return decode(id, raw)
}

// Get returns a database document.
func (s *Store) Get(ctx context.Context, collection, id string) (*store.Snapshot, error) {
	data, err := s.selectOne(ctx, s.db, collection, id, false)
	if errors.Is(err, store.ErrNotFound) {
		return &store.Snapshot{ID: id}, nil
	}
	if err != nil {
		return nil, err
	}
	return &store.Snapshot{ID: id, Data: data, Exists: true}, nil
}

// Query translates q into a SELECT.
func (s *Store) Query(ctx context.Context, q *query.Query) ([]*store.Snapshot, error) {
	stmt, args, err := buildSelect(s.d, q)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select documents: %w", err)
	}
	defer rows.Close()

	var result []*store.Snapshot
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		data, err := decode(id, raw)
		if err != nil {
			return nil, err
		}
		result = append(result, &store.Snapshot{ID: id, Data: data, Exists: true})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) upsert(ctx context.Context, db dbx.DBTX, collection, id string, data map[string]any) error {
	raw, err := encode(id, data)
	if err != nil {
		return err
	}
	b := &builder{d: s.d}
	q := fmt.Sprintf(`INSERT INTO documents (collection, id, data) VALUES (%s, %s, %s)
		ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data`,
		b.arg(collection), b.arg(id), s.d.data(b, raw))
	if _, err := db.ExecContext(ctx, q, b.args...); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Set stores a document, replacing an existing one.
func (s *Store) Set(ctx context.Context, collection string, doc store.Document) error {
	return s.upsert(ctx, s.db, collection, doc.ID, doc.Data)
}

// merge applies fields to an existing document inside tx.
func (s *Store) merge(ctx context.Context, tx dbx.DBTX, collection, id string, fields map[string]any) error {
	data, err := s.selectOne(ctx, tx, collection, id, true)
	if err != nil {
		return err
	}
	for k, v := range fields {
		data[k] = v
	}
	raw, err := encode(id, data)
	if err != nil {
		return err
	}

	b := &builder{d: s.d}
	q := fmt.Sprintf("UPDATE documents SET data = %s WHERE collection = %s AND id = %s",
		s.d.data(b, raw), b.arg(collection), b.arg(id))
	res, err := tx.ExecContext(ctx, q, b.args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.ExpectOneRow(res, fmt.Errorf("%w: %s/%s", store.ErrNotFound, collection, id))
}

// Update merges fields into an existing document.
func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.merge(ctx, tx, collection, id, fields)
	})
}

// Delete deletes a document.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	b := &builder{d: s.d}
	q := "DELETE FROM documents WHERE collection = " + b.arg(collection) + " AND id = " + b.arg(id)
	if _, err := s.db.ExecContext(ctx, q, b.args...); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// BulkWrite upserts each document on its own.
func (s *Store) BulkWrite(ctx context.Context, collection string, docs []store.Document) error {
	var result *multierror.Error
	for _, doc := range docs {
		if err := s.upsert(ctx, s.db, collection, doc.ID, doc.Data); err != nil {
			result = multierror.Append(result, fmt.Errorf("document %s: %w", doc.ID, err))
		}
	}
	return result.ErrorOrNil()
}

// Batch applies all updates in one transaction.
func (s *Store) Batch(ctx context.Context, collection string, updates []store.Update) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, u := range updates {
			if err := s.merge(ctx, tx, collection, u.ID, u.Fields); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Package boltstore keeps collections in a single bbolt file, one bucket per
// collection, documents stored as JSON.
package boltstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"go.etcd.io/bbolt"

	"github.com/dmitrijs2005/doccollection/internal/filex"
	"github.com/dmitrijs2005/doccollection/query"
	"github.com/dmitrijs2005/doccollection/store"
)

// Driver is the registry name of this backend.
const Driver = "bolt"

func init() {
	_ = store.Register(Driver, func(ctx context.Context, cfg store.Config) (store.Backend, error) {
		if cfg.DSN == "" {
			return nil, fmt.Errorf("%w: bolt needs a file path", store.ErrMissingSettings)
		}
		return Open(cfg.DSN)
	})
}

// BoltStore database.
type BoltStore struct {
	db *bbolt.DB
}

// Open opens or creates the bbolt file at path.
func Open(path string) (*BoltStore, error) {
	if err := filex.EnsureParentDir(path); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}
	return &BoltStore{db: db}, nil
}

func decode(id string, value []byte) (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal(value, &data); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", id, err)
	}
	return data, nil
}

// NewID returns a random UUID.
func (s *BoltStore) NewID(string) string {
	return uuid.NewString()
}

// Get returns a database document.
func (s *BoltStore) Get(_ context.Context, collection, id string) (*store.Snapshot, error) {
	snap := &store.Snapshot{ID: id}

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(collection))
		if bucket == nil {
			return nil
		}
		value := bucket.Get([]byte(id))
		if value == nil {
			return nil
		}
		data, err := decode(id, value)
		if err != nil {
			return err
		}
		snap.Data = data
		snap.Exists = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Query scans the collection bucket and evaluates the query in memory.
func (s *BoltStore) Query(_ context.Context, q *query.Query) ([]*store.Snapshot, error) {
	if _, err := q.Check(); err != nil {
		return nil, err
	}

	var entries []query.Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(q.Collection()))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			data, err := decode(string(k), v)
			if err != nil {
				return err
			}
			entries = append(entries, query.Entry{ID: string(k), Data: data})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	matched, err := query.Evaluate(q, entries)
	if err != nil {
		return nil, err
	}

	out := make([]*store.Snapshot, 0, len(matched))
	for _, e := range matched {
		out = append(out, &store.Snapshot{ID: e.ID, Data: e.Data, Exists: true})
	}
	return out, nil
}

func put(tx *bbolt.Tx, collection string, doc store.Document) error {
	bucket, err := tx.CreateBucketIfNotExists([]byte(collection))
	if err != nil {
		return err
	}
	data := doc.Data
	if data == nil {
		data = map[string]any{}
	}
	value, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", doc.ID, err)
	}
	return bucket.Put([]byte(doc.ID), value)
}

// Set stores a document.
func (s *BoltStore) Set(_ context.Context, collection string, doc store.Document) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return put(tx, collection, doc)
	})
}

func merge(tx *bbolt.Tx, collection, id string, fields map[string]any) error {
	bucket := tx.Bucket([]byte(collection))
	var value []byte
	if bucket != nil {
		value = bucket.Get([]byte(id))
	}
	if value == nil {
		return fmt.Errorf("%w: %s/%s", store.ErrNotFound, collection, id)
	}
	data, err := decode(id, value)
	if err != nil {
		return err
	}
	for k, v := range fields {
		data[k] = v
	}
	return put(tx, collection, store.Document{ID: id, Data: data})
}

// Update merges fields into an existing document.
func (s *BoltStore) Update(_ context.Context, collection, id string, fields map[string]any) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return merge(tx, collection, id, fields)
	})
}

// Delete deletes a document.
func (s *BoltStore) Delete(_ context.Context, collection, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(collection))
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(id))
	})
}

// BulkWrite writes each document in its own transaction.
func (s *BoltStore) BulkWrite(_ context.Context, collection string, docs []store.Document) error {
	var result *multierror.Error
	for _, doc := range docs {
		err := s.db.Update(func(tx *bbolt.Tx) error {
			return put(tx, collection, doc)
		})
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("document %s: %w", doc.ID, err))
		}
	}
	return result.ErrorOrNil()
}

// Batch applies all updates in one transaction; any failure rolls it back.
func (s *BoltStore) Batch(_ context.Context, collection string, updates []store.Update) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, u := range updates {
			if err := merge(tx, collection, u.ID, u.Fields); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close closes the bolt file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

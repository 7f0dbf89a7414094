// Package memstore provides an in-process backend. Every read returns a
// fresh deep copy, so callers never share state with the store.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/copystructure"

	"github.com/dmitrijs2005/doccollection/query"
	"github.com/dmitrijs2005/doccollection/store"
)

// Driver is the registry name of this backend.
const Driver = "memory"

func init() {
	_ = store.Register(Driver, func(ctx context.Context, cfg store.Config) (store.Backend, error) {
		return New(), nil
	})
}

// MemStore storage.
type MemStore struct {
	collections map[string]map[string]map[string]any
	lock        sync.RWMutex
}

// New creates an empty in-memory store.
func New() *MemStore {
	return &MemStore{
		collections: make(map[string]map[string]map[string]any),
	}
}

func copyData(data map[string]any) (map[string]any, error) {
	if data == nil {
		return map[string]any{}, nil
	}
	c, err := copystructure.Copy(data)
	if err != nil {
		return nil, fmt.Errorf("copy document: %w", err)
	}
	return c.(map[string]any), nil
}

// NewID returns a random UUID.
func (m *MemStore) NewID(string) string {
	return uuid.NewString()
}

// Get returns a copy of the document.
func (m *MemStore) Get(_ context.Context, collection, id string) (*store.Snapshot, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	data, ok := m.collections[collection][id]
	if !ok {
		return &store.Snapshot{ID: id}, nil
	}
	c, err := copyData(data)
	if err != nil {
		return nil, err
	}
	return &store.Snapshot{ID: id, Data: c, Exists: true}, nil
}

// Query evaluates the query over a copy of the collection.
func (m *MemStore) Query(_ context.Context, q *query.Query) ([]*store.Snapshot, error) {
	if _, err := q.Check(); err != nil {
		return nil, err
	}

	m.lock.RLock()
	entries := make([]query.Entry, 0, len(m.collections[q.Collection()]))
	for id, data := range m.collections[q.Collection()] {
		entries = append(entries, query.Entry{ID: id, Data: data})
	}
	matched, err := query.Evaluate(q, entries)
	if err != nil {
		m.lock.RUnlock()
		return nil, err
	}

	out := make([]*store.Snapshot, 0, len(matched))
	for _, e := range matched {
		c, err := copyData(e.Data)
		if err != nil {
			m.lock.RUnlock()
			return nil, err
		}
		out = append(out, &store.Snapshot{ID: e.ID, Data: c, Exists: true})
	}
	m.lock.RUnlock()

	return out, nil
}

// Set stores a copy of the document.
func (m *MemStore) Set(_ context.Context, collection string, doc store.Document) error {
	c, err := copyData(doc.Data)
	if err != nil {
		return err
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	m.put(collection, doc.ID, c)
	return nil
}

func (m *MemStore) put(collection, id string, data map[string]any) {
	coll, ok := m.collections[collection]
	if !ok {
		coll = make(map[string]map[string]any)
		m.collections[collection] = coll
	}
	coll[id] = data
}

// Update merges fields into an existing document.
func (m *MemStore) Update(_ context.Context, collection, id string, fields map[string]any) error {
	c, err := copyData(fields)
	if err != nil {
		return err
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	data, ok := m.collections[collection][id]
	if !ok {
		return fmt.Errorf("%w: %s/%s", store.ErrNotFound, collection, id)
	}
	for k, v := range c {
		data[k] = v
	}
	return nil
}

// Delete deletes a document.
func (m *MemStore) Delete(_ context.Context, collection, id string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	delete(m.collections[collection], id)
	return nil
}

// BulkWrite stores every document; a document that cannot be copied is
// skipped and reported.
func (m *MemStore) BulkWrite(_ context.Context, collection string, docs []store.Document) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	var result *multierror.Error
	for _, doc := range docs {
		c, err := copyData(doc.Data)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("document %s: %w", doc.ID, err))
			continue
		}
		m.put(collection, doc.ID, c)
	}
	return result.ErrorOrNil()
}

// Batch applies the updates only if every target document exists.
func (m *MemStore) Batch(_ context.Context, collection string, updates []store.Update) error {
	copies := make([]map[string]any, len(updates))
	for i, u := range updates {
		c, err := copyData(u.Fields)
		if err != nil {
			return err
		}
		copies[i] = c
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	coll := m.collections[collection]
	for _, u := range updates {
		if _, ok := coll[u.ID]; !ok {
			return fmt.Errorf("%w: %s/%s", store.ErrNotFound, collection, u.ID)
		}
	}
	for i, u := range updates {
		for k, v := range copies[i] {
			coll[u.ID][k] = v
		}
	}
	return nil
}

// Close is a no-op.
func (m *MemStore) Close() error {
	return nil
}

// Package store defines the contract between the collection accessor and
// the document database underneath it, and a registry from which backends
// are opened by driver name.
package store

import (
	"context"

	"github.com/dmitrijs2005/doccollection/query"
)

// Document is a record as written to a backend: its key and field values.
type Document struct {
	ID   string
	Data map[string]any
}

// Snapshot is a document as read from a backend. Exists is false when no
// document is stored under ID. Native holds the backend's own snapshot
// object where one exists, so a resolved cursor can be applied natively.
type Snapshot struct {
	ID     string
	Data   map[string]any
	Exists bool
	Native any
}

// Update is a partial-field update of one document.
type Update struct {
	ID     string
	Fields map[string]any
}

// Backend is a document database holding named collections.
type Backend interface {
	// NewID returns a fresh document id for the collection.
	NewID(collection string) string

	// Get reads a single document. A missing document is reported by
	// Snapshot.Exists, not by an error.
	Get(ctx context.Context, collection, id string) (*Snapshot, error)

	// Query executes a query plan built by the collection accessor.
	Query(ctx context.Context, q *query.Query) ([]*Snapshot, error)

	// Set writes the document, replacing any document with the same id.
	Set(ctx context.Context, collection string, doc Document) error

	// Update merges fields into an existing document. It returns
	// ErrNotFound when the document does not exist.
	Update(ctx context.Context, collection, id string, fields map[string]any) error

	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error

	// BulkWrite sets every document without atomicity. Failures of
	// individual documents are reported together as a *multierror.Error.
	BulkWrite(ctx context.Context, collection string, docs []Document) error

	// Batch applies all updates atomically: either every update is
	// committed or none is.
	Batch(ctx context.Context, collection string, updates []Update) error

	// Close releases the backend's resources.
	Close() error
}

// Entries converts snapshots into query entries for in-memory evaluation.
func Entries(snaps []*Snapshot) []query.Entry {
	out := make([]query.Entry, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, query.Entry{ID: s.ID, Data: s.Data})
	}
	return out
}

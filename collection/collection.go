// Package collection is a typed accessor over one collection of a document
// store. It assembles list requests into query plans, projects partial
// updates onto declared record shapes and forwards everything else to a
// store.Backend.
//
// Example:
//
//	acc, err := collection.New(backend, "users", []collection.Shape{
//		{Name: "user", Fields: []string{"name", "age"}},
//	})
//	...
//	page, err := acc.ListRecords(ctx, collection.DefaultOptions())
package collection

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/dmitrijs2005/doccollection/internal/logging"
	"github.com/dmitrijs2005/doccollection/query"
	"github.com/dmitrijs2005/doccollection/store"
)

// MaxBatchSize is the most records CreateRecords accepts per call.
const MaxBatchSize = 500

// Accessor reads and writes one collection. Its configuration is fixed at
// construction, so it is safe for concurrent use.
type Accessor struct {
	backend store.Backend
	name    string
	shapes  []shape
	log     logging.Logger
}

// Option configures an Accessor.
type Option func(*Accessor)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l logging.Logger) Option {
	return func(a *Accessor) {
		if l != nil {
			a.log = l
		}
	}
}

// New validates the shapes and returns an accessor for the named
// collection. More than one shape switches the accessor into multi-type
// mode, in which every shape must declare the "type" field.
func New(backend store.Backend, name string, shapes []Shape, opts ...Option) (*Accessor, error) {
	if backend == nil {
		return nil, fmt.Errorf("%w: nil backend", ErrConfiguration)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: empty collection name", ErrConfiguration)
	}
	compiled, err := compileShapes(shapes)
	if err != nil {
		return nil, err
	}

	a := &Accessor{
		backend: backend,
		name:    name,
		shapes:  compiled,
		log:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.With("collection", name)
	return a, nil
}

// Name returns the collection name.
func (a *Accessor) Name() string { return a.name }

// MultiType reports whether records carry a discriminator.
func (a *Accessor) MultiType() bool { return len(a.shapes) > 1 }

// Shapes returns the declared shapes.
func (a *Accessor) Shapes() []Shape {
	out := make([]Shape, len(a.shapes))
	for i, s := range a.shapes {
		out[i] = s.Shape
	}
	return out
}

// resolveCursor reads the cursor document from this accessor's collection.
func (a *Accessor) resolveCursor(ctx context.Context, id string) (query.Cursor, error) {
	snap, err := a.backend.Get(ctx, a.name, id)
	if err != nil {
		return nil, err
	}
	if !snap.Exists {
		return nil, fmt.Errorf("%w: cursor document %s/%s", store.ErrNotFound, a.name, id)
	}
	return query.SnapshotCursor{ID: snap.ID, Data: snap.Data, Native: snap.Native}, nil
}

// Assemble builds the query plan for opts. Cursor ids in where and paging
// mode cost one read.
func (a *Accessor) Assemble(ctx context.Context, opts Options) (*query.Query, error) {
	sel, err := opts.Selector()
	if err != nil {
		return nil, err
	}

	q := query.New(a.name)

	switch s := sel.(type) {
	case WhereSelector:
		if len(s.Clauses) > 0 {
			conds := make([]query.Condition, len(s.Clauses))
			for i, c := range s.Clauses {
				conds[i] = c
			}
			if s.Or {
				q.Where(query.Or(conds...))
			} else {
				q.Where(query.And(conds...))
			}
		}
		if s.StartAfter != "" {
			cur, err := a.resolveCursor(ctx, s.StartAfter)
			if err != nil {
				return nil, err
			}
			q.StartAfter(cur)
		}
		q.Limit(s.Limit)

	case OrderSelector:
		q.OrderBy(s.Field, s.Direction)
		if s.HasCursor {
			q.StartAfter(query.ValueCursor{Value: s.StartAfter})
		}
		q.Limit(s.Limit)

	case PagingSelector:
		q.OrderBy(query.DocumentID, query.Ascending)
		if s.StartAfter != "" {
			cur, err := a.resolveCursor(ctx, s.StartAfter)
			if err != nil {
				return nil, err
			}
			q.StartAfter(cur)
		}
		q.Limit(s.Limit)

	case DefaultSelector:
		q.OrderBy(query.DocumentID, query.Ascending).Limit(DefaultLimit)
	}

	return q, nil
}

// ListRecords runs the assembled query and returns the matching records.
func (a *Accessor) ListRecords(ctx context.Context, opts Options) (result []Record, err error) {
	defer a.observe(opList, &err)

	q, err := a.Assemble(ctx, opts)
	if err != nil {
		return nil, err
	}
	a.log.Debug(ctx, "assembled query", "query", q.Print())

	snaps, err := a.backend.Query(ctx, q)
	if err != nil {
		return nil, err
	}

	result = make([]Record, 0, len(snaps))
	for _, s := range snaps {
		result = append(result, Record{ID: s.ID, Data: s.Data})
	}
	return result, nil
}

// GetRecord reads one record. It returns nil and no error when the id is
// not stored.
func (a *Accessor) GetRecord(ctx context.Context, id string) (rec *Record, err error) {
	defer a.observe(opGet, &err)

	snap, err := a.backend.Get(ctx, a.name, id)
	if err != nil {
		return nil, err
	}
	if !snap.Exists {
		return nil, nil
	}
	return &Record{ID: snap.ID, Data: snap.Data}, nil
}

// CreateRecord writes rec. With assignID the record's own id is used and
// must be free; otherwise the store generates one, which is written back
// unless rec already carries an id. The existence check and the write are
// not atomic.
func (a *Accessor) CreateRecord(ctx context.Context, rec Record, assignID bool) (_ Record, err error) {
	defer a.observe(opCreate, &err)

	if assignID {
		if rec.ID == "" {
			return rec, ErrIDRequired
		}
		snap, err := a.backend.Get(ctx, a.name, rec.ID)
		if err != nil {
			return rec, err
		}
		if snap.Exists {
			return rec, fmt.Errorf("%w: %s/%s", ErrConflict, a.name, rec.ID)
		}
		if err := a.backend.Set(ctx, a.name, store.Document{ID: rec.ID, Data: rec.Data}); err != nil {
			return rec, err
		}
		return rec, nil
	}

	key := a.backend.NewID(a.name)
	if err := a.backend.Set(ctx, a.name, store.Document{ID: key, Data: rec.Data}); err != nil {
		return rec, err
	}
	if rec.ID != "" {
		a.log.Warn(ctx, "record id kept while the store generated another key",
			"id", rec.ID, "key", key)
		return rec, nil
	}
	rec.ID = key
	return rec, nil
}

// CreateRecords bulk-writes up to MaxBatchSize records, each at its own id
// or a generated one. Failures of single records are logged, not returned.
func (a *Accessor) CreateRecords(ctx context.Context, recs []Record) (err error) {
	defer a.observe(opCreateMany, &err)

	if len(recs) > MaxBatchSize {
		return fmt.Errorf("%w: %d records, at most %d", ErrBatchTooLarge, len(recs), MaxBatchSize)
	}

	docs := make([]store.Document, 0, len(recs))
	for _, r := range recs {
		id := r.ID
		if id == "" {
			id = a.backend.NewID(a.name)
		}
		docs = append(docs, store.Document{ID: id, Data: r.Data})
	}

	err = a.backend.BulkWrite(ctx, a.name, docs)
	var merr *multierror.Error
	if errors.As(err, &merr) {
		a.log.Warn(ctx, "bulk write finished with failures",
			"failed", len(merr.Errors), "total", len(docs), "error", merr.Error())
		return nil
	}
	return err
}

// UpdateRecord projects partial and merges it into the record. It returns
// the projected fields.
func (a *Accessor) UpdateRecord(ctx context.Context, id string, partial map[string]any) (_ map[string]any, err error) {
	defer a.observe(opUpdate, &err)

	projected, err := a.Project(partial)
	if err != nil {
		return nil, err
	}
	if err := a.backend.Update(ctx, a.name, id, projected); err != nil {
		return nil, err
	}
	return projected, nil
}

// UpdateRecords projects every payload and applies all of them in one
// atomic batch.
func (a *Accessor) UpdateRecords(ctx context.Context, updates []RecordUpdate) (_ []RecordUpdate, err error) {
	defer a.observe(opUpdateMany, &err)

	applied := make([]RecordUpdate, 0, len(updates))
	batch := make([]store.Update, 0, len(updates))
	for _, u := range updates {
		projected, err := a.Project(u.Data)
		if err != nil {
			return nil, fmt.Errorf("update %s: %w", u.ID, err)
		}
		applied = append(applied, RecordUpdate{ID: u.ID, Data: projected})
		batch = append(batch, store.Update{ID: u.ID, Fields: projected})
	}

	if err := a.backend.Batch(ctx, a.name, batch); err != nil {
		return nil, err
	}
	return applied, nil
}

// DeleteRecord deletes a record. Deleting a missing id succeeds.
func (a *Accessor) DeleteRecord(ctx context.Context, id string) (err error) {
	defer a.observe(opDelete, &err)

	return a.backend.Delete(ctx, a.name, id)
}

// Package firestorestore is the managed-document-store backend: each
// collection maps to a Cloud Firestore collection.
package firestorestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/hashicorp/go-multierror"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/doccollection/query"
	"github.com/dmitrijs2005/doccollection/store"
)

// Driver is the registry name of this backend.
const Driver = "firestore"

func init() {
	_ = store.Register(Driver, func(ctx context.Context, cfg store.Config) (store.Backend, error) {
		if cfg.ProjectID == "" {
			return nil, fmt.Errorf("%w: firestore needs a project id", store.ErrMissingSettings)
		}
		return Open(ctx, cfg.ProjectID)
	})
}

// FirestoreStore database.
type FirestoreStore struct {
	client *firestore.Client
}

// Open creates a client for the project. Credentials and the emulator
// (FIRESTORE_EMULATOR_HOST) are picked up from the environment.
func Open(ctx context.Context, projectID string) (*FirestoreStore, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return &FirestoreStore{client: client}, nil
}

func notFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func wrapNotFound(err error, collection, id string) error {
	if notFound(err) {
		return fmt.Errorf("%w: %s/%s", store.ErrNotFound, collection, id)
	}
	return err
}

// NewID returns an auto-generated document id.
func (s *FirestoreStore) NewID(collection string) string {
	return s.client.Collection(collection).NewDoc().ID
}

func snapshot(ds *firestore.DocumentSnapshot) *store.Snapshot {
	return &store.Snapshot{
		ID:     ds.Ref.ID,
		Data:   ds.Data(),
		Exists: ds.Exists(),
		Native: ds,
	}
}

// Get returns a database document.
func (s *FirestoreStore) Get(ctx context.Context, collection, id string) (*store.Snapshot, error) {
	ds, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		if notFound(err) {
			return &store.Snapshot{ID: id}, nil
		}
		return nil, err
	}
	return snapshot(ds), nil
}

func (s *FirestoreStore) build(q *query.Query) (firestore.Query, error) {
	coll := s.client.Collection(q.Collection())
	fq := coll.Query

	if _, err := q.Check(); err != nil {
		return fq, err
	}

	if c := q.Condition(); c != nil {
		f, err := entityFilter(c, coll.Doc)
		if err != nil {
			return fq, err
		}
		fq = fq.WhereEntity(f)
	}

	field, dir := q.Order()
	if field == "" {
		field = query.DocumentID
	}
	fdir := firestore.Asc
	if dir == query.Descending {
		fdir = firestore.Desc
	}
	if field == query.DocumentID {
		fq = fq.OrderBy(firestore.DocumentID, fdir)
	} else {
		fq = fq.OrderBy(field, fdir).OrderBy(firestore.DocumentID, fdir)
	}

	switch cur := q.Cursor().(type) {
	case nil:
	case query.SnapshotCursor:
		if ds, ok := cur.Native.(*firestore.DocumentSnapshot); ok && ds != nil {
			fq = fq.StartAfter(ds)
			break
		}
		if field == query.DocumentID {
			fq = fq.StartAfter(cur.ID)
			break
		}
		v, ok := lookup(cur.Data, splitPath(field))
		if !ok {
			return fq, fmt.Errorf("%w: cursor document %s has no field %q", query.ErrInvalidQuery, cur.ID, field)
		}
		fq = fq.StartAfter(v, cur.ID)
	case query.ValueCursor:
		fq = fq.StartAfter(cur.Value)
	default:
		return fq, fmt.Errorf("%w: unsupported cursor %T", query.ErrInvalidQuery, cur)
	}

	return withLimit(fq, q), nil
}

// withLimit hands a set limit to Firestore unchanged, so zero and negative
// values get whatever the service does with them.
func withLimit[Q interface{ Limit(n int) Q }](fq Q, q *query.Query) Q {
	if limit, ok := q.LimitValue(); ok {
		return fq.Limit(limit)
	}
	return fq
}

// Query runs q natively.
func (s *FirestoreStore) Query(ctx context.Context, q *query.Query) ([]*store.Snapshot, error) {
	fq, err := s.build(q)
	if err != nil {
		return nil, err
	}

	docs, err := fq.Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	out := make([]*store.Snapshot, 0, len(docs))
	for _, ds := range docs {
		out = append(out, snapshot(ds))
	}
	return out, nil
}

// Set replaces or creates a document.
func (s *FirestoreStore) Set(ctx context.Context, collection string, doc store.Document) error {
	data := doc.Data
	if data == nil {
		data = map[string]any{}
	}
	_, err := s.client.Collection(collection).Doc(doc.ID).Set(ctx, data)
	return err
}

func fieldUpdates(fields map[string]any) []firestore.Update {
	out := make([]firestore.Update, 0, len(fields))
	for k, v := range fields {
		// FieldPath keeps dotted keys as a single top-level field
		out = append(out, firestore.Update{FieldPath: firestore.FieldPath{k}, Value: v})
	}
	return out
}

// Update merges fields into an existing document.
func (s *FirestoreStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	ref := s.client.Collection(collection).Doc(id)
	if len(fields) == 0 {
		_, err := ref.Get(ctx)
		return wrapNotFound(err, collection, id)
	}
	_, err := ref.Update(ctx, fieldUpdates(fields))
	return wrapNotFound(err, collection, id)
}

// Delete deletes a document. Deleting a missing document succeeds.
func (s *FirestoreStore) Delete(ctx context.Context, collection, id string) error {
	_, err := s.client.Collection(collection).Doc(id).Delete(ctx)
	return err
}

// BulkWrite enqueues every document on a BulkWriter and collects the
// per-document results.
func (s *FirestoreStore) BulkWrite(ctx context.Context, collection string, docs []store.Document) error {
	bw := s.client.BulkWriter(ctx)
	coll := s.client.Collection(collection)

	var result *multierror.Error
	jobs := make([]*firestore.BulkWriterJob, len(docs))
	for i, doc := range docs {
		data := doc.Data
		if data == nil {
			data = map[string]any{}
		}
		job, err := bw.Set(coll.Doc(doc.ID), data)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("document %s: %w", doc.ID, err))
			continue
		}
		jobs[i] = job
	}
	bw.End()

	for i, job := range jobs {
		if job == nil {
			continue
		}
		if _, err := job.Results(); err != nil {
			result = multierror.Append(result, fmt.Errorf("document %s: %w", docs[i].ID, err))
		}
	}
	return result.ErrorOrNil()
}

// Batch applies all updates in one transaction. Every target is read first
// so a missing document aborts the transaction before any write.
func (s *FirestoreStore) Batch(ctx context.Context, collection string, updates []store.Update) error {
	coll := s.client.Collection(collection)
	refs := make([]*firestore.DocumentRef, len(updates))
	for i, u := range updates {
		refs[i] = coll.Doc(u.ID)
	}

	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snaps, err := tx.GetAll(refs)
		if err != nil {
			return err
		}
		for i, ds := range snaps {
			if !ds.Exists() {
				return fmt.Errorf("%w: %s/%s", store.ErrNotFound, collection, updates[i].ID)
			}
		}
		for i, u := range updates {
			if len(u.Fields) == 0 {
				continue
			}
			if err := tx.Update(refs[i], fieldUpdates(u.Fields)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close closes the client.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

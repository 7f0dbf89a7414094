// Package mongostore keeps each collection in a MongoDB collection of the
// same name. The document key is stored as _id.
package mongostore

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dmitrijs2005/doccollection/query"
	"github.com/dmitrijs2005/doccollection/store"
)

// Driver is the registry name of this backend.
const Driver = "mongo"

func init() {
	_ = store.Register(Driver, func(ctx context.Context, cfg store.Config) (store.Backend, error) {
		if cfg.DSN == "" || cfg.Database == "" {
			return nil, fmt.Errorf("%w: mongo needs a URI and a database", store.ErrMissingSettings)
		}
		return Open(ctx, cfg.DSN, cfg.Database)
	})
}

// MongoStore database.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// Open connects to uri and uses the named database.
func Open(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoStore{client: client, db: client.Database(database)}, nil
}

func (s *MongoStore) coll(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// NewID returns a fresh ObjectID in hex.
func (s *MongoStore) NewID(string) string {
	return primitive.NewObjectID().Hex()
}

// Get returns a database document.
func (s *MongoStore) Get(ctx context.Context, collection, id string) (*store.Snapshot, error) {
	var raw bson.M
	err := s.coll(collection).FindOne(ctx, bson.M{idField: id}).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return &store.Snapshot{ID: id}, nil
		}
		return nil, err
	}
	return snapshot(raw), nil
}

// Query translates q into a find.
func (s *MongoStore) Query(ctx context.Context, q *query.Query) ([]*store.Snapshot, error) {
	filter, opts, err := buildFind(q)
	if err != nil {
		return nil, err
	}

	cursor, err := s.coll(q.Collection()).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []*store.Snapshot
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, err
		}
		results = append(results, snapshot(raw))
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func replacement(doc store.Document) bson.M {
	out := make(bson.M, len(doc.Data)+1)
	for k, v := range doc.Data {
		out[k] = v
	}
	out[idField] = doc.ID
	return out
}

// Set replaces or inserts a document.
func (s *MongoStore) Set(ctx context.Context, collection string, doc store.Document) error {
	_, err := s.coll(collection).ReplaceOne(ctx, bson.M{idField: doc.ID}, replacement(doc),
		options.Replace().SetUpsert(true))
	return err
}

func (s *MongoStore) update(ctx context.Context, collection, id string, fields map[string]any) error {
	set := make(bson.M, len(fields))
	for k, v := range fields {
		if k == idField {
			continue
		}
		set[k] = v
	}
	if len(set) == 0 {
		// $set rejects an empty document; still report a missing target
		n, err := s.coll(collection).CountDocuments(ctx, bson.M{idField: id})
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: %s/%s", store.ErrNotFound, collection, id)
		}
		return nil
	}

	res, err := s.coll(collection).UpdateOne(ctx, bson.M{idField: id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s/%s", store.ErrNotFound, collection, id)
	}
	return nil
}

// Update merges fields into an existing document.
func (s *MongoStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	return s.update(ctx, collection, id, fields)
}

// Delete deletes a document.
func (s *MongoStore) Delete(ctx context.Context, collection, id string) error {
	_, err := s.coll(collection).DeleteOne(ctx, bson.M{idField: id})
	return err
}

// BulkWrite upserts all documents in one unordered bulk write.
func (s *MongoStore) BulkWrite(ctx context.Context, collection string, docs []store.Document) error {
	if len(docs) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(docs))
	for _, doc := range docs {
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{idField: doc.ID}).
			SetReplacement(replacement(doc)).
			SetUpsert(true))
	}

	_, err := s.coll(collection).BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	return bulkErrors(err, docs)
}

// bulkErrors splits a bulk write exception into per-document errors.
func bulkErrors(err error, docs []store.Document) error {
	if err == nil {
		return nil
	}
	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) || len(bwe.WriteErrors) == 0 {
		return err
	}

	var result *multierror.Error
	for _, we := range bwe.WriteErrors {
		id := "?"
		if we.Index >= 0 && we.Index < len(docs) {
			id = docs[we.Index].ID
		}
		result = multierror.Append(result, fmt.Errorf("document %s: %s (code %d)", id, we.Message, we.Code))
	}
	return result.ErrorOrNil()
}

// Batch applies all updates in one multi-document transaction. It needs a
// replica set or sharded cluster.
func (s *MongoStore) Batch(ctx context.Context, collection string, updates []store.Update) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		for _, u := range updates {
			if err := s.update(sc, collection, u.ID, u.Fields); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

func snapshot(raw bson.M) *store.Snapshot {
	id := fmt.Sprint(raw[idField])
	delete(raw, idField)
	data, _ := normalize(raw).(map[string]any)
	return &store.Snapshot{ID: id, Data: data, Exists: true}
}

// normalize converts decoded BSON containers to plain maps and slices.
func normalize(v any) any {
	switch t := v.(type) {
	case primitive.M:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = normalize(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = normalize(item)
		}
		return out
	case primitive.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = normalize(e.Value)
		}
		return out
	case primitive.A:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalize(item)
		}
		return out
	}
	return v
}

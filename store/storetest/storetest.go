// Package storetest holds a behaviour suite every store.Backend must pass.
package storetest

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/doccollection/query"
	"github.com/dmitrijs2005/doccollection/store"
)

// Run runs the suite. newBackend must return an empty backend; it is called
// once per subtest.
func Run(t *testing.T, newBackend func(t *testing.T) store.Backend) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, b store.Backend)
	}{
		{"GetMissing", testGetMissing},
		{"SetGet", testSetGet},
		{"FreshCopies", testFreshCopies},
		{"UpdateMerges", testUpdateMerges},
		{"UpdateMissing", testUpdateMissing},
		{"DeleteIdempotent", testDeleteIdempotent},
		{"QueryAndOr", testQueryAndOr},
		{"QueryOrderCursorLimit", testQueryOrderCursorLimit},
		{"QueryCollectionsIsolated", testCollectionsIsolated},
		{"QueryTimestamps", testQueryTimestamps},
		{"QueryTypedEquality", testQueryTypedEquality},
		{"BulkWrite", testBulkWrite},
		{"BatchAtomic", testBatchAtomic},
		{"NewIDUnique", testNewIDUnique},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBackend(t)
			t.Cleanup(func() { _ = b.Close() })
			tt.fn(t, b)
		})
	}
}

const coll = "people"

// JSONEqual compares two documents by their JSON form, so backends that
// decode numbers as float64 compare equal to int input.
func JSONEqual(t *testing.T, want, got map[string]any) {
	t.Helper()
	w, err := json.Marshal(want)
	require.NoError(t, err)
	g, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, string(w), string(g))
}

func seed(t *testing.T, b store.Backend) {
	t.Helper()
	ctx := context.Background()
	docs := []store.Document{
		{ID: "a", Data: map[string]any{"name": "ann", "age": 17}},
		{ID: "b", Data: map[string]any{"name": "bob", "age": 30}},
		{ID: "c", Data: map[string]any{"name": "cat", "age": 70}},
		{ID: "d", Data: map[string]any{"name": "dan", "age": 45}},
		{ID: "e", Data: map[string]any{"name": "eve"}},
	}
	for _, d := range docs {
		require.NoError(t, b.Set(ctx, coll, d))
	}
}

func ids(snaps []*store.Snapshot) []string {
	out := make([]string, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, s.ID)
	}
	return out
}

func testGetMissing(t *testing.T, b store.Backend) {
	snap, err := b.Get(context.Background(), coll, "nope")
	require.NoError(t, err)
	assert.False(t, snap.Exists)
	assert.Equal(t, "nope", snap.ID)
}

func testSetGet(t *testing.T, b store.Backend) {
	ctx := context.Background()
	data := map[string]any{"name": "ann", "age": 17, "tags": []any{"x", "y"}}
	require.NoError(t, b.Set(ctx, coll, store.Document{ID: "a", Data: data}))

	snap, err := b.Get(ctx, coll, "a")
	require.NoError(t, err)
	require.True(t, snap.Exists)
	JSONEqual(t, data, snap.Data)

	// replace
	require.NoError(t, b.Set(ctx, coll, store.Document{ID: "a", Data: map[string]any{"name": "anne"}}))
	snap, err = b.Get(ctx, coll, "a")
	require.NoError(t, err)
	JSONEqual(t, map[string]any{"name": "anne"}, snap.Data)
}

func testFreshCopies(t *testing.T, b store.Backend) {
	ctx := context.Background()
	data := map[string]any{"name": "ann"}
	require.NoError(t, b.Set(ctx, coll, store.Document{ID: "a", Data: data}))
	data["name"] = "mutated"

	snap, err := b.Get(ctx, coll, "a")
	require.NoError(t, err)
	snap.Data["name"] = "mutated again"

	snap, err = b.Get(ctx, coll, "a")
	require.NoError(t, err)
	assert.Equal(t, "ann", snap.Data["name"])
}

func testUpdateMerges(t *testing.T, b store.Backend) {
	ctx := context.Background()
	require.NoError(t, b.Set(ctx, coll, store.Document{ID: "a", Data: map[string]any{"name": "ann", "age": 17}}))
	require.NoError(t, b.Update(ctx, coll, "a", map[string]any{"age": 18, "city": "riga"}))

	snap, err := b.Get(ctx, coll, "a")
	require.NoError(t, err)
	JSONEqual(t, map[string]any{"name": "ann", "age": 18, "city": "riga"}, snap.Data)
}

func testUpdateMissing(t *testing.T, b store.Backend) {
	err := b.Update(context.Background(), coll, "nope", map[string]any{"age": 1})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testDeleteIdempotent(t *testing.T, b store.Backend) {
	ctx := context.Background()
	require.NoError(t, b.Set(ctx, coll, store.Document{ID: "a", Data: map[string]any{"name": "ann"}}))
	require.NoError(t, b.Delete(ctx, coll, "a"))
	require.NoError(t, b.Delete(ctx, coll, "a"))
	require.NoError(t, b.Delete(ctx, coll, "never-existed"))

	snap, err := b.Get(ctx, coll, "a")
	require.NoError(t, err)
	assert.False(t, snap.Exists)
}

func testQueryAndOr(t *testing.T, b store.Backend) {
	ctx := context.Background()
	seed(t, b)

	and := query.New(coll).Where(query.And(
		query.Where("age", query.GreaterThanOrEqual, 18),
		query.Where("age", query.LessThan, 65),
	))
	got, err := b.Query(ctx, and)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "d"}, ids(got))

	or := query.New(coll).Where(query.Or(
		query.Where("age", query.GreaterThanOrEqual, 65),
		query.Where("age", query.LessThan, 18),
	))
	got, err = b.Query(ctx, or)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, ids(got))

	in := query.New(coll).Where(query.Where("name", query.In, []any{"eve", "bob"}))
	got, err = b.Query(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "e"}, ids(got))
}

func testQueryOrderCursorLimit(t *testing.T, b store.Backend) {
	ctx := context.Background()
	seed(t, b)

	byID := query.New(coll).OrderBy(query.DocumentID, query.Ascending).Limit(2)
	got, err := b.Query(ctx, byID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(got))

	cursor, err := b.Get(ctx, coll, "b")
	require.NoError(t, err)
	next := query.New(coll).OrderBy(query.DocumentID, query.Ascending).
		StartAfter(query.SnapshotCursor{ID: cursor.ID, Data: cursor.Data, Native: cursor.Native}).Limit(2)
	got, err = b.Query(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d"}, ids(got))

	byAge := query.New(coll).OrderBy("age", query.Descending).StartAfter(query.ValueCursor{Value: 45}).Limit(10)
	got, err = b.Query(ctx, byAge)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, ids(got))

	filtered := query.New(coll).
		Where(query.Where("age", query.GreaterThan, 10)).
		StartAfter(query.SnapshotCursor{ID: cursor.ID, Data: cursor.Data, Native: cursor.Native}).
		Limit(1)
	got, err = b.Query(ctx, filtered)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, ids(got))
}

func testCollectionsIsolated(t *testing.T, b store.Backend) {
	ctx := context.Background()
	require.NoError(t, b.Set(ctx, "one", store.Document{ID: "x", Data: map[string]any{"v": 1}}))
	require.NoError(t, b.Set(ctx, "two", store.Document{ID: "y", Data: map[string]any{"v": 2}}))

	got, err := b.Query(ctx, query.New("one"))
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, ids(got))
}

func testQueryTimestamps(t *testing.T, b store.Backend) {
	ctx := context.Background()
	const events = "events"
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for id, at := range map[string]time.Time{"a": t0.Add(-time.Hour), "b": t0, "c": t0.Add(time.Hour)} {
		require.NoError(t, b.Set(ctx, events, store.Document{ID: id, Data: map[string]any{"at": at}}))
	}

	tests := []struct {
		name string
		cond query.Condition
		want []string
	}{
		{"equals", query.Where("at", query.Equals, t0), []string{"b"}},
		{"at or after", query.Where("at", query.GreaterThanOrEqual, t0), []string{"b", "c"}},
		{"before", query.Where("at", query.LessThan, t0), []string{"a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := b.Query(ctx, query.New(events).Where(tt.cond))
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

// Values only match operands of their own JSON type: true is not 1 and a
// missing field is not null.
func testQueryTypedEquality(t *testing.T, b store.Backend) {
	ctx := context.Background()
	const values = "values"
	docs := []store.Document{
		{ID: "m", Data: map[string]any{"w": 1}},
		{ID: "n", Data: map[string]any{"v": nil}},
		{ID: "o", Data: map[string]any{"v": 1}},
		{ID: "s", Data: map[string]any{"v": "1"}},
		{ID: "t", Data: map[string]any{"v": true}},
	}
	for _, d := range docs {
		require.NoError(t, b.Set(ctx, values, d))
	}

	tests := []struct {
		name string
		cond query.Condition
		want []string
	}{
		{"null", query.Where("v", query.Equals, nil), []string{"n"}},
		{"number", query.Where("v", query.Equals, 1), []string{"o"}},
		{"bool", query.Where("v", query.Equals, true), []string{"t"}},
		{"string", query.Where("v", query.Equals, "1"), []string{"s"}},
		{"range", query.Where("v", query.GreaterThanOrEqual, 1), []string{"o"}},
		{"not null", query.Where("v", query.NotEquals, nil), []string{"o", "s", "t"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := b.Query(ctx, query.New(values).Where(tt.cond))
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func testBulkWrite(t *testing.T, b store.Backend) {
	ctx := context.Background()
	docs := make([]store.Document, 0, 25)
	for i := 0; i < 25; i++ {
		docs = append(docs, store.Document{ID: fmt.Sprintf("doc-%02d", i), Data: map[string]any{"n": i}})
	}
	require.NoError(t, b.BulkWrite(ctx, coll, docs))

	got, err := b.Query(ctx, query.New(coll).Limit(100))
	require.NoError(t, err)
	assert.Len(t, got, 25)
}

func testBatchAtomic(t *testing.T, b store.Backend) {
	ctx := context.Background()
	seed(t, b)

	err := b.Batch(ctx, coll, []store.Update{
		{ID: "a", Fields: map[string]any{"age": 99}},
		{ID: "missing", Fields: map[string]any{"age": 1}},
	})
	require.Error(t, err)

	snap, err := b.Get(ctx, coll, "a")
	require.NoError(t, err)
	JSONEqual(t, map[string]any{"name": "ann", "age": 17}, snap.Data)

	require.NoError(t, b.Batch(ctx, coll, []store.Update{
		{ID: "a", Fields: map[string]any{"age": 18}},
		{ID: "b", Fields: map[string]any{"age": 31}},
	}))
	snap, err = b.Get(ctx, coll, "b")
	require.NoError(t, err)
	JSONEqual(t, map[string]any{"name": "bob", "age": 31}, snap.Data)
}

func testNewIDUnique(t *testing.T, b store.Backend) {
	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		id := b.NewID(coll)
		require.NotEmpty(t, id)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

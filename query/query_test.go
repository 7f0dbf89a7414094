package query

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func people() []Entry {
	return []Entry{
		{ID: "a", Data: map[string]any{"name": "ann", "age": 17, "tags": []string{"x"}}},
		{ID: "b", Data: map[string]any{"name": "bob", "age": 30, "tags": []string{"y", "z"}}},
		{ID: "c", Data: map[string]any{"name": "cat", "age": 70}},
		{ID: "d", Data: map[string]any{"name": "dan", "age": 45, "address": map[string]any{"city": "riga"}}},
		{ID: "e", Data: map[string]any{"name": "eve"}},
	}
}

func ids(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

func run(t *testing.T, q *Query) []string {
	t.Helper()
	got, err := Evaluate(q, people())
	require.NoError(t, err)
	return ids(got)
}

func TestEvaluate_AndVersusOr(t *testing.T) {
	adults := New("p").Where(And(
		Where("age", GreaterThanOrEqual, 18),
		Where("age", LessThan, 65),
	))
	assert.Equal(t, []string{"b", "d"}, run(t, adults))

	either := New("p").Where(Or(
		Where("age", GreaterThanOrEqual, 18),
		Where("age", LessThan, 65),
	))
	assert.Equal(t, []string{"a", "b", "c", "d"}, run(t, either))
}

func TestEvaluate_Operators(t *testing.T) {
	tests := []struct {
		name string
		cond Condition
		want []string
	}{
		{"equals", Where("name", Equals, "bob"), []string{"b"}},
		{"not equals skips missing", Where("age", NotEquals, 30), []string{"a", "c", "d"}},
		{"greater", Where("age", GreaterThan, 45), []string{"c"}},
		{"less or equal", Where("age", LessThanOrEqual, int64(30)), []string{"a", "b"}},
		{"type mismatch", Where("age", GreaterThan, "10"), []string{}},
		{"array contains", Where("tags", ArrayContains, "z"), []string{"b"}},
		{"array contains any", Where("tags", ArrayContainsAny, []string{"x", "z"}), []string{"a", "b"}},
		{"in", Where("name", In, []any{"ann", "eve"}), []string{"a", "e"}},
		{"not in", Where("age", NotIn, []int{17, 70}), []string{"b", "d"}},
		{"nested path", Where("address.city", Equals, "riga"), []string{"d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := run(t, New("p").Where(tt.cond))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("ids mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEvaluate_TimeValues(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := []Entry{
		{ID: "early", Data: map[string]any{"at": t0.Add(-time.Hour)}},
		{ID: "exact", Data: map[string]any{"at": t0}},
		{ID: "later", Data: map[string]any{"at": t0.Add(500 * time.Millisecond)}},
	}

	tests := []struct {
		name string
		cond Condition
		want []string
	}{
		{"equals", Where("at", Equals, t0), []string{"exact"}},
		{"equals in another zone", Where("at", Equals, t0.In(time.FixedZone("x", 3600))), []string{"exact"}},
		{"at or after", Where("at", GreaterThanOrEqual, t0), []string{"exact", "later"}},
		{"sub-second order", Where("at", GreaterThan, t0), []string{"later"}},
		{"before", Where("at", LessThan, t0), []string{"early"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(New("p").Where(tt.cond), entries)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestNormalize_JSONShape(t *testing.T) {
	type point struct {
		X int `json:"x"`
	}
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "2024-03-01T12:00:00Z", normalize(at))
	assert.Equal(t, map[string]any{"x": float64(1)}, normalize(point{X: 1}))
	assert.Equal(t, map[string]any{"n": float64(2)}, normalize(map[string]int{"n": 2}))
}

func TestEvaluate_OrderDropsMissingField(t *testing.T) {
	got := run(t, New("p").OrderBy("age", Descending))
	assert.Equal(t, []string{"c", "d", "b", "a"}, got)
}

func TestEvaluate_DefaultOrderIsID(t *testing.T) {
	entries := []Entry{{ID: "z"}, {ID: "m"}, {ID: "a"}}
	got, err := Evaluate(New("p"), entries)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "m", "z"}, ids(got))
}

func TestEvaluate_Cursors(t *testing.T) {
	t.Run("snapshot cursor by id", func(t *testing.T) {
		q := New("p").OrderBy(DocumentID, Ascending).
			StartAfter(SnapshotCursor{ID: "b"}).Limit(2)
		assert.Equal(t, []string{"c", "d"}, run(t, q))
	})

	t.Run("snapshot cursor by field", func(t *testing.T) {
		q := New("p").OrderBy("age", Ascending).
			StartAfter(SnapshotCursor{ID: "b", Data: map[string]any{"age": 30}})
		assert.Equal(t, []string{"d", "c"}, run(t, q))
	})

	t.Run("value cursor descending", func(t *testing.T) {
		q := New("p").OrderBy("age", Descending).StartAfter(ValueCursor{Value: 45})
		assert.Equal(t, []string{"b", "a"}, run(t, q))
	})

	t.Run("snapshot missing order field", func(t *testing.T) {
		q := New("p").OrderBy("age", Ascending).StartAfter(SnapshotCursor{ID: "e", Data: map[string]any{}})
		_, err := Evaluate(q, people())
		require.ErrorIs(t, err, ErrInvalidQuery)
	})
}

func TestEvaluate_LimitPassThrough(t *testing.T) {
	assert.Len(t, run(t, New("p").Limit(2)), 2)
	assert.Len(t, run(t, New("p").Limit(0)), 5)
	assert.Len(t, run(t, New("p").Limit(-3)), 5)
}

func TestCheck(t *testing.T) {
	_, err := New("").Check()
	require.ErrorIs(t, err, ErrInvalidQuery)

	_, err = New("p").Where(Where("age", Operator("~="), 1)).Check()
	var opErr *OperatorError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, "age", opErr.Field)
	require.ErrorIs(t, err, ErrInvalidQuery)

	_, err = New("p").Where(Where("age", In, 5)).Check()
	require.ErrorIs(t, err, ErrInvalidQuery)

	_, err = New("p").Where(Or()).Check()
	require.ErrorIs(t, err, ErrInvalidQuery)

	q, err := New("p").Where(Where("age", Equals, 1)).Check()
	require.NoError(t, err)
	assert.True(t, q.IsChecked())
}

func TestPrint(t *testing.T) {
	q := New("people").
		Where(Or(Where("age", GreaterThanOrEqual, 18), Where("name", Equals, "x"))).
		OrderBy("age", Descending).
		StartAfter(ValueCursor{Value: 40}).
		Limit(5)

	assert.Equal(t, "query people where age >= 18 or name == x orderby age desc startafter 40 limit 5", q.Print())
	assert.Equal(t, "query people", New("people").Print())
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("DESC")
	require.NoError(t, err)
	assert.Equal(t, Descending, d)

	d, err = ParseDirection("")
	require.NoError(t, err)
	assert.Equal(t, Ascending, d)

	_, err = ParseDirection("sideways")
	require.Error(t, err)
}

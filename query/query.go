// Package query holds the backend-neutral query plan produced by the
// collection accessor. Backends translate a checked Query into their native
// query objects; in-process backends evaluate it directly with Evaluate.
//
// Example:
//
//	q := query.New("users").
//		Where(query.And(
//			query.Where("age", query.GreaterThanOrEqual, 18),
//			query.Where("age", query.LessThan, 65),
//		)).
//		OrderBy(query.DocumentID, query.Ascending).
//		Limit(10)
package query

import (
	"fmt"
	"strings"
)

// DocumentID is the pseudo-field naming the document key in OrderBy.
const DocumentID = "__name__"

// Direction is a sort direction.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// ParseDirection accepts "asc"/"desc" in any case. An empty string means ascending.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "", "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	}
	return Ascending, fmt.Errorf("unknown direction %q", s)
}

// Query contains a compiled query.
type Query struct {
	checked    bool
	collection string
	where      Condition
	orderBy    string
	direction  Direction
	cursor     Cursor
	limit      int
	hasLimit   bool
}

// New creates a new query against the given collection.
func New(collection string) *Query {
	return &Query{
		collection: collection,
	}
}

// Where sets the filter condition.
func (q *Query) Where(condition Condition) *Query {
	q.where = condition
	q.checked = false
	return q
}

// OrderBy orders the results by the given field.
func (q *Query) OrderBy(field string, dir Direction) *Query {
	q.orderBy = field
	q.direction = dir
	q.checked = false
	return q
}

// StartAfter sets the cursor the results begin strictly after.
func (q *Query) StartAfter(c Cursor) *Query {
	q.cursor = c
	return q
}

// Limit limits the number of returned results. The value is passed to the
// backend unchanged, zero and negative values included.
func (q *Query) Limit(limit int) *Query {
	q.limit = limit
	q.hasLimit = true
	return q
}

// Collection returns the target collection name.
func (q *Query) Collection() string { return q.collection }

// Condition returns the filter, or nil if the query is unfiltered.
func (q *Query) Condition() Condition { return q.where }

// Order returns the order field and direction. The field is empty when no
// ordering was requested.
func (q *Query) Order() (string, Direction) { return q.orderBy, q.direction }

// Cursor returns the start-after cursor, or nil.
func (q *Query) Cursor() Cursor { return q.cursor }

// LimitValue returns the limit and whether one was set.
func (q *Query) LimitValue() (int, bool) { return q.limit, q.hasLimit }

// Check checks for errors in the query.
func (q *Query) Check() (*Query, error) {
	if q.checked {
		return q, nil
	}

	if q.collection == "" {
		return nil, fmt.Errorf("%w: empty collection", ErrInvalidQuery)
	}

	if q.where != nil {
		if err := q.where.check(); err != nil {
			return nil, err
		}
	}

	if sc, ok := q.cursor.(SnapshotCursor); ok && sc.ID == "" {
		return nil, fmt.Errorf("%w: snapshot cursor without id", ErrInvalidQuery)
	}

	q.checked = true
	return q, nil
}

// MustBeValid checks for errors in the query and panics if there is an error.
func (q *Query) MustBeValid() *Query {
	_, err := q.Check()
	if err != nil {
		panic(err)
	}
	return q
}

// IsChecked returns whether the query was checked.
func (q *Query) IsChecked() bool {
	return q.checked
}

// Print returns the string representation of the query.
func (q *Query) Print() string {
	var where string
	if q.where != nil {
		where = q.where.string()
		if strings.HasPrefix(where, "(") {
			where = where[1 : len(where)-1]
		}
		where = fmt.Sprintf(" where %s", where)
	}

	var orderBy string
	if q.orderBy != "" {
		orderBy = fmt.Sprintf(" orderby %s %s", q.orderBy, q.direction)
	}

	var startAfter string
	if q.cursor != nil {
		startAfter = fmt.Sprintf(" startafter %s", q.cursor.string())
	}

	var limit string
	if q.hasLimit {
		limit = fmt.Sprintf(" limit %d", q.limit)
	}

	return fmt.Sprintf("query %s%s%s%s%s", q.collection, where, orderBy, startAfter, limit)
}

package query

import (
	"fmt"
	"sort"
)

// Entry is a stored document handed to Evaluate.
type Entry struct {
	ID   string
	Data map[string]any
}

func (c *Clause) complies(d *doc) bool {
	got, ok := d.get(c.Field)
	if !ok {
		return false
	}
	want := normalize(c.Value)

	switch c.Operator {
	case Equals:
		return equal(got, want)
	case NotEquals:
		return got != nil && !equal(got, want)
	case LessThan, LessThanOrEqual, GreaterThan, GreaterThanOrEqual:
		if rank(got) != rank(want) {
			return false
		}
		cmp := compare(got, want)
		switch c.Operator {
		case LessThan:
			return cmp < 0
		case LessThanOrEqual:
			return cmp <= 0
		case GreaterThan:
			return cmp > 0
		default:
			return cmp >= 0
		}
	case ArrayContains:
		list, ok := got.([]any)
		return ok && containsValue(list, want)
	case ArrayContainsAny:
		list, ok := got.([]any)
		if !ok {
			return false
		}
		for _, w := range c.ListValues() {
			if containsValue(list, normalize(w)) {
				return true
			}
		}
		return false
	case In:
		return containsValue(normalizeList(c.ListValues()), got)
	case NotIn:
		return got != nil && !containsValue(normalizeList(c.ListValues()), got)
	}
	return false
}

func normalizeList(list []any) []any {
	out := make([]any, len(list))
	for i := range list {
		out[i] = normalize(list[i])
	}
	return out
}

// Matches reports whether the entry satisfies the query's condition.
func (q *Query) Matches(e Entry) (bool, error) {
	if q.where == nil {
		return true, nil
	}
	d, err := newDoc(e.ID, e.Data)
	if err != nil {
		return false, err
	}
	return q.where.complies(d), nil
}

type sortKey struct {
	value any
	id    string
}

// Evaluate runs the query over entries in memory: filter, order, cursor and
// limit, in that order. Without an explicit order entries are ordered by
// id. Entries lacking the order field are dropped. A limit of zero or below
// is ignored.
func Evaluate(q *Query, entries []Entry) ([]Entry, error) {
	if _, err := q.Check(); err != nil {
		return nil, err
	}

	field, dir := q.Order()
	if field == "" {
		field = DocumentID
	}

	type item struct {
		entry Entry
		key   sortKey
	}

	items := make([]item, 0, len(entries))
	for _, e := range entries {
		d, err := newDoc(e.ID, e.Data)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", e.ID, err)
		}
		if q.where != nil && !q.where.complies(d) {
			continue
		}
		v, ok := d.get(field)
		if !ok {
			continue
		}
		items = append(items, item{entry: e, key: sortKey{value: v, id: e.ID}})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return keyLess(items[i].key, items[j].key, dir)
	})

	if q.cursor != nil {
		after, err := cursorFilter(q.cursor, field, dir)
		if err != nil {
			return nil, err
		}
		start := len(items)
		for i := range items {
			if after(items[i].key) {
				start = i
				break
			}
		}
		items = items[start:]
	}

	if limit, ok := q.LimitValue(); ok && limit > 0 && limit < len(items) {
		items = items[:limit]
	}

	out := make([]Entry, len(items))
	for i := range items {
		out[i] = items[i].entry
	}
	return out, nil
}

func keyLess(a, b sortKey, dir Direction) bool {
	c := compare(a.value, b.value)
	if c == 0 {
		if dir == Descending {
			return a.id > b.id
		}
		return a.id < b.id
	}
	if dir == Descending {
		return c > 0
	}
	return c < 0
}

// cursorFilter returns a predicate reporting whether a key lies strictly
// after the cursor in the sort order.
func cursorFilter(c Cursor, field string, dir Direction) (func(sortKey) bool, error) {
	switch cur := c.(type) {
	case SnapshotCursor:
		d, err := newDoc(cur.ID, cur.Data)
		if err != nil {
			return nil, err
		}
		v, ok := d.get(field)
		if !ok {
			return nil, fmt.Errorf("%w: cursor document %s has no field %q", ErrInvalidQuery, cur.ID, field)
		}
		at := sortKey{value: v, id: cur.ID}
		return func(k sortKey) bool { return keyLess(at, k, dir) }, nil
	case ValueCursor:
		at := normalize(cur.Value)
		return func(k sortKey) bool {
			c := compare(k.value, at)
			if dir == Descending {
				return c < 0
			}
			return c > 0
		}, nil
	}
	return nil, fmt.Errorf("%w: unsupported cursor %T", ErrInvalidQuery, c)
}

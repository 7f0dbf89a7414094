package sqlstore

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/doccollection/query"
)

// builder accumulates SQL text and its positional arguments. Parts must be
// rendered in the order they appear in the final statement.
type builder struct {
	d    Dialect
	args []any
}

func (b *builder) arg(v any) string {
	b.args = append(b.args, v)
	return b.d.placeholder(len(b.args))
}

func (b *builder) field(path string) string {
	if isID(path) {
		return "id"
	}
	return b.d.field(b, path)
}

func (b *builder) value(path string, v any) (string, error) {
	if isID(path) {
		return idValue(b, v), nil
	}
	return b.d.value(b, v)
}

var comparisons = map[query.Operator]string{
	query.Equals:             "=",
	query.NotEquals:          "<>",
	query.LessThan:           "<",
	query.LessThanOrEqual:    "<=",
	query.GreaterThan:        ">",
	query.GreaterThanOrEqual: ">=",
}

func (b *builder) condition(c query.Condition) (string, error) {
	switch cond := c.(type) {
	case *query.Clause:
		return b.clause(cond)
	case *query.AndCondition:
		return b.join(cond.Conditions, " AND ")
	case *query.OrCondition:
		return b.join(cond.Conditions, " OR ")
	}
	return "", fmt.Errorf("%w: unsupported condition %T", query.ErrInvalidQuery, c)
}

func (b *builder) join(conds []query.Condition, sep string) (string, error) {
	if len(conds) == 0 {
		return "1=1", nil
	}
	parts := make([]string, 0, len(conds))
	for _, c := range conds {
		s, err := b.condition(c)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}

// clause renders c so it matches only values of the operand's JSON type,
// the way the in-process evaluator ranks them.
func (b *builder) clause(c *query.Clause) (string, error) {
	if isID(c.Field) {
		return b.idClause(c)
	}

	switch c.Operator {
	case query.Equals:
		return b.equal(c.Field, c.Value)
	case query.NotEquals:
		present := b.present(c.Field)
		eq, err := b.equal(c.Field, c.Value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s AND NOT %s)", present, eq), nil
	case query.LessThan, query.LessThanOrEqual, query.GreaterThan, query.GreaterThanOrEqual:
		return b.ordered(c.Field, c.Operator, c.Value)
	case query.In:
		list := c.ListValues()
		if len(list) == 0 {
			return "1=0", nil
		}
		return b.anyEqual(c.Field, list)
	case query.NotIn:
		present := b.present(c.Field)
		list := c.ListValues()
		if len(list) == 0 {
			return present, nil
		}
		eq, err := b.anyEqual(c.Field, list)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s AND NOT %s)", present, eq), nil
	case query.ArrayContains:
		return b.d.arrayContains(b, c.Field, c.Value)
	case query.ArrayContainsAny:
		list := c.ListValues()
		if len(list) == 0 {
			return "1=0", nil
		}
		parts := make([]string, 0, len(list))
		for _, item := range list {
			s, err := b.d.arrayContains(b, c.Field, item)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return "(" + strings.Join(parts, " OR ") + ")", nil
	}
	return "", &query.OperatorError{Field: c.Field, Operator: c.Operator}
}

// equal renders "the value at path equals v and has its JSON type".
func (b *builder) equal(path string, v any) (string, error) {
	kind, err := kindOf(v)
	if err != nil {
		return "", err
	}
	test := typeTest(b.d.typeOf(b, path), b.d.typeNames(kind))
	if kind == kindNull {
		return test, nil
	}
	f := b.d.field(b, path)
	val, err := b.d.value(b, v)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s AND %s = %s)", test, f, val), nil
}

func (b *builder) anyEqual(path string, list []any) (string, error) {
	parts := make([]string, 0, len(list))
	for _, item := range list {
		s, err := b.equal(path, item)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return "(" + strings.Join(parts, " OR ") + ")", nil
}

// ordered renders a range comparison between values of the same JSON type.
func (b *builder) ordered(path string, op query.Operator, v any) (string, error) {
	kind, err := kindOf(v)
	if err != nil {
		return "", err
	}
	test := typeTest(b.d.typeOf(b, path), b.d.typeNames(kind))
	if kind == kindNull {
		// null only sorts equal to itself
		if op == query.LessThanOrEqual || op == query.GreaterThanOrEqual {
			return test, nil
		}
		return "1=0", nil
	}
	f := b.d.field(b, path)
	val, err := b.d.value(b, v)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s AND %s %s %s)", test, f, comparisons[op], val), nil
}

// present renders "path holds a non-null value".
func (b *builder) present(path string) string {
	return fmt.Sprintf("COALESCE(%s, 'null') <> 'null'", b.d.typeOf(b, path))
}

func (b *builder) idClause(c *query.Clause) (string, error) {
	if op, ok := comparisons[c.Operator]; ok {
		return fmt.Sprintf("id %s %s", op, idValue(b, c.Value)), nil
	}

	switch c.Operator {
	case query.In, query.NotIn:
		list := c.ListValues()
		if len(list) == 0 {
			if c.Operator == query.In {
				return "1=0", nil
			}
			return "1=1", nil
		}
		vals := make([]string, 0, len(list))
		for _, item := range list {
			vals = append(vals, idValue(b, item))
		}
		op := "IN"
		if c.Operator == query.NotIn {
			op = "NOT IN"
		}
		return fmt.Sprintf("id %s (%s)", op, strings.Join(vals, ", ")), nil
	}
	return "", &query.OperatorError{Field: c.Field, Operator: c.Operator}
}

// buildSelect renders q as a SELECT over the documents table.
func buildSelect(d Dialect, q *query.Query) (string, []any, error) {
	if _, err := q.Check(); err != nil {
		return "", nil, err
	}

	b := &builder{d: d}
	var sb strings.Builder

	sb.WriteString("SELECT id, data FROM documents WHERE collection = ")
	sb.WriteString(b.arg(q.Collection()))

	if c := q.Condition(); c != nil {
		s, err := b.condition(c)
		if err != nil {
			return "", nil, err
		}
		sb.WriteString(" AND ")
		sb.WriteString(s)
	}

	field, dir := q.Order()
	if field == "" {
		field = query.DocumentID
	}
	if !isID(field) {
		sb.WriteString(" AND ")
		sb.WriteString(b.field(field))
		sb.WriteString(" IS NOT NULL")
	}

	if cur := q.Cursor(); cur != nil {
		s, err := b.cursor(cur, field, dir)
		if err != nil {
			return "", nil, err
		}
		sb.WriteString(" AND ")
		sb.WriteString(s)
	}

	order := "ASC"
	if dir == query.Descending {
		order = "DESC"
	}

	sb.WriteString(" ORDER BY ")
	if !isID(field) {
		sb.WriteString(b.field(field))
		sb.WriteString(" " + order + ", ")
	}
	sb.WriteString("id " + order)

	if limit, ok := q.LimitValue(); ok && limit > 0 {
		sb.WriteString(" LIMIT ")
		sb.WriteString(b.arg(limit))
	}

	return sb.String(), b.args, nil
}

func (b *builder) cursor(c query.Cursor, field string, dir query.Direction) (string, error) {
	after := ">"
	if dir == query.Descending {
		after = "<"
	}

	switch cur := c.(type) {
	case query.SnapshotCursor:
		if isID(field) {
			return "id " + after + " " + b.arg(cur.ID), nil
		}
		v, ok := lookup(cur.Data, field)
		if !ok {
			return "", fmt.Errorf("%w: cursor document %s has no field %q", query.ErrInvalidQuery, cur.ID, field)
		}
		f1 := b.field(field)
		v1, err := b.value(field, v)
		if err != nil {
			return "", err
		}
		f2 := b.field(field)
		v2, err := b.value(field, v)
		if err != nil {
			return "", err
		}
		id := b.arg(cur.ID)
		return fmt.Sprintf("(%s %s %s OR (%s = %s AND id %s %s))", f1, after, v1, f2, v2, after, id), nil
	case query.ValueCursor:
		f := b.field(field)
		v, err := b.value(field, cur.Value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s %s", f, after, v), nil
	}
	return "", fmt.Errorf("%w: unsupported cursor %T", query.ErrInvalidQuery, c)
}

// lookup resolves a dotted path in nested maps.
func lookup(data map[string]any, path string) (any, bool) {
	var cur any = data
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

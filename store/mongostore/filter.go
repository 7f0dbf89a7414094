package mongostore

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dmitrijs2005/doccollection/query"
)

const idField = "_id"

var operators = map[query.Operator]string{
	query.Equals:             "$eq",
	query.NotEquals:          "$ne",
	query.LessThan:           "$lt",
	query.LessThanOrEqual:    "$lte",
	query.GreaterThan:        "$gt",
	query.GreaterThanOrEqual: "$gte",
	query.In:                 "$in",
	query.NotIn:              "$nin",
	// an equality match on an array field matches any element
	query.ArrayContains:    "$eq",
	query.ArrayContainsAny: "$in",
}

func fieldName(path string) string {
	if path == query.DocumentID {
		return idField
	}
	return path
}

func condition(c query.Condition) (bson.M, error) {
	switch cond := c.(type) {
	case *query.Clause:
		op, ok := operators[cond.Operator]
		if !ok {
			return nil, &query.OperatorError{Field: cond.Field, Operator: cond.Operator}
		}
		value := cond.Value
		switch cond.Operator {
		case query.In, query.NotIn, query.ArrayContainsAny:
			value = cond.ListValues()
		}
		if cond.Field == query.DocumentID {
			value = idValue(value)
		}
		// $nin with null also drops documents where the field is null or missing
		switch cond.Operator {
		case query.Equals:
			if value == nil {
				// $eq null would also match a missing field
				op, value = "$type", "null"
			}
		case query.NotEquals:
			op, value = "$nin", bson.A{value, nil}
		case query.NotIn:
			value = append(append([]any{}, value.([]any)...), nil)
		}
		f := bson.M{op: value}
		return bson.M{fieldName(cond.Field): f}, nil
	case *query.AndCondition:
		return join("$and", cond.Conditions)
	case *query.OrCondition:
		return join("$or", cond.Conditions)
	}
	return nil, fmt.Errorf("%w: unsupported condition %T", query.ErrInvalidQuery, c)
}

func join(op string, conds []query.Condition) (bson.M, error) {
	if len(conds) == 0 {
		return bson.M{}, nil
	}
	parts := make(bson.A, 0, len(conds))
	for _, c := range conds {
		f, err := condition(c)
		if err != nil {
			return nil, err
		}
		parts = append(parts, f)
	}
	return bson.M{op: parts}, nil
}

// idValue stringifies values compared against _id, which always holds a
// string key.
func idValue(v any) any {
	if list, ok := v.([]any); ok {
		out := make([]any, len(list))
		for i, item := range list {
			out[i] = fmt.Sprint(item)
		}
		return out
	}
	return fmt.Sprint(v)
}

// lookup resolves a dotted path in nested maps.
func lookup(data map[string]any, path string) (any, bool) {
	var cur any = data
	for _, part := range splitPath(path) {
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

// buildFind translates q into a filter and find options.
func buildFind(q *query.Query) (bson.M, *options.FindOptions, error) {
	if _, err := q.Check(); err != nil {
		return nil, nil, err
	}

	var and bson.A
	if c := q.Condition(); c != nil {
		f, err := condition(c)
		if err != nil {
			return nil, nil, err
		}
		and = append(and, f)
	}

	field, dir := q.Order()
	if field == "" {
		field = query.DocumentID
	}
	name := fieldName(field)
	if name != idField {
		and = append(and, bson.M{name: bson.M{"$exists": true}})
	}

	after, sortDir := "$gt", 1
	if dir == query.Descending {
		after, sortDir = "$lt", -1
	}

	switch cur := q.Cursor().(type) {
	case nil:
	case query.SnapshotCursor:
		if name == idField {
			and = append(and, bson.M{idField: bson.M{after: cur.ID}})
			break
		}
		v, ok := lookup(cur.Data, field)
		if !ok {
			return nil, nil, fmt.Errorf("%w: cursor document %s has no field %q", query.ErrInvalidQuery, cur.ID, field)
		}
		and = append(and, bson.M{"$or": bson.A{
			bson.M{name: bson.M{after: v}},
			bson.M{name: v, idField: bson.M{after: cur.ID}},
		}})
	case query.ValueCursor:
		v := cur.Value
		if name == idField {
			v = idValue(v)
		}
		and = append(and, bson.M{name: bson.M{after: v}})
	default:
		return nil, nil, fmt.Errorf("%w: unsupported cursor %T", query.ErrInvalidQuery, cur)
	}

	filter := bson.M{}
	switch len(and) {
	case 0:
	case 1:
		filter = and[0].(bson.M)
	default:
		filter = bson.M{"$and": and}
	}

	sort := bson.D{}
	if name != idField {
		sort = append(sort, bson.E{Key: name, Value: sortDir})
	}
	sort = append(sort, bson.E{Key: idField, Value: sortDir})

	opts := options.Find().SetSort(sort)
	if limit, ok := q.LimitValue(); ok && limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return filter, opts, nil
}

func splitPath(path string) []string {
	return strings.Split(path, ".")
}

package firestorestore

import (
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"

	"github.com/dmitrijs2005/doccollection/query"
)

// refFunc turns a document id into a reference for DocumentID comparisons.
type refFunc func(id string) *firestore.DocumentRef

func entityFilter(c query.Condition, ref refFunc) (firestore.EntityFilter, error) {
	switch cond := c.(type) {
	case *query.Clause:
		return propertyFilter(cond, ref)
	case *query.AndCondition:
		filters, err := entityFilters(cond.Conditions, ref)
		if err != nil {
			return nil, err
		}
		return firestore.AndFilter{Filters: filters}, nil
	case *query.OrCondition:
		filters, err := entityFilters(cond.Conditions, ref)
		if err != nil {
			return nil, err
		}
		return firestore.OrFilter{Filters: filters}, nil
	}
	return nil, fmt.Errorf("%w: unsupported condition %T", query.ErrInvalidQuery, c)
}

func entityFilters(conds []query.Condition, ref refFunc) ([]firestore.EntityFilter, error) {
	out := make([]firestore.EntityFilter, 0, len(conds))
	for _, c := range conds {
		f, err := entityFilter(c, ref)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func propertyFilter(c *query.Clause, ref refFunc) (firestore.PropertyFilter, error) {
	if !c.Operator.Valid() {
		return firestore.PropertyFilter{}, &query.OperatorError{Field: c.Field, Operator: c.Operator}
	}

	value := c.Value
	if c.Field == query.DocumentID {
		switch c.Operator {
		case query.In, query.NotIn:
			list := c.ListValues()
			refs := make([]*firestore.DocumentRef, len(list))
			for i, item := range list {
				refs[i] = ref(fmt.Sprint(item))
			}
			value = refs
		default:
			value = ref(fmt.Sprint(value))
		}
	}

	return firestore.PropertyFilter{
		Path:     c.Field,
		Operator: string(c.Operator),
		Value:    value,
	}, nil
}

// lookup resolves a dotted path in nested maps.
func lookup(data map[string]any, path []string) (any, bool) {
	var cur any = data
	for _, part := range path {
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

func splitPath(path string) []string {
	return strings.Split(path, ".")
}

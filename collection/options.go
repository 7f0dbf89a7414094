package collection

import (
	"fmt"

	"github.com/dmitrijs2005/doccollection/query"
)

// DefaultLimit is the page size used when no options are given.
const DefaultLimit = 10

// PagingOptions bounds a page. StartAfter is a document id in where and
// paging modes and a raw order-field value in order mode.
type PagingOptions struct {
	StartAfter any `json:"startAfter"`
	Limit      int `json:"limit"`
}

// WhereClause is one (field, operation, value) predicate.
type WhereClause struct {
	Field     string `json:"field"`
	Operation string `json:"operation"`
	Value     any    `json:"value"`
}

// WhereOptions filters by clauses joined with "and" (default) or "or".
// Operator is matched exactly; any other value, "OR" included, means "and".
type WhereOptions struct {
	Clauses  []WhereClause  `json:"whereClauses"`
	Operator string         `json:"operator,omitempty"`
	Paging   *PagingOptions `json:"pagingOptions,omitempty"`
}

// OrderOptions orders by one field.
type OrderOptions struct {
	Field     string         `json:"field"`
	Direction string         `json:"direction,omitempty"`
	Paging    *PagingOptions `json:"pagingOptions,omitempty"`
}

// Options is the wire form of a list request. At most one of Where and
// Order may be set.
type Options struct {
	Where  *WhereOptions  `json:"whereOptions,omitempty"`
	Order  *OrderOptions  `json:"orderOptions,omitempty"`
	Paging *PagingOptions `json:"pagingOptions,omitempty"`
}

// DefaultOptions pages by id with DefaultLimit. Each call returns a fresh
// value.
func DefaultOptions() Options {
	return Options{Paging: &PagingOptions{StartAfter: nil, Limit: DefaultLimit}}
}

// Selector is the validated form of Options: one of WhereSelector,
// OrderSelector, PagingSelector or DefaultSelector.
type Selector interface {
	selector()
}

// WhereSelector filters, then pages by document id.
type WhereSelector struct {
	Clauses    []*query.Clause
	Or         bool
	StartAfter string // document id, "" for none
	Limit      int
}

// OrderSelector orders by a field and pages by a raw field value.
type OrderSelector struct {
	Field      string
	Direction  query.Direction
	StartAfter any
	HasCursor  bool
	Limit      int
}

// PagingSelector pages by document id.
type PagingSelector struct {
	StartAfter string // document id, "" for none
	Limit      int
}

// DefaultSelector orders by id and returns DefaultLimit records.
type DefaultSelector struct{}

func (WhereSelector) selector()   {}
func (OrderSelector) selector()   {}
func (PagingSelector) selector()  {}
func (DefaultSelector) selector() {}

// Selector validates the options and converts them to their variant.
func (o Options) Selector() (Selector, error) {
	switch {
	case o.Where != nil && o.Order != nil:
		return nil, fmt.Errorf("%w: whereOptions and orderOptions are mutually exclusive", ErrConfiguration)

	case o.Where != nil:
		if o.Where.Paging == nil {
			return nil, fmt.Errorf("%w: whereOptions requires pagingOptions", ErrConfiguration)
		}
		id, err := cursorID(o.Where.Paging.StartAfter)
		if err != nil {
			return nil, err
		}
		clauses := make([]*query.Clause, 0, len(o.Where.Clauses))
		for _, c := range o.Where.Clauses {
			clauses = append(clauses, query.Where(c.Field, query.Operator(c.Operation), c.Value))
		}
		return WhereSelector{
			Clauses:    clauses,
			Or:         o.Where.Operator == "or",
			StartAfter: id,
			Limit:      o.Where.Paging.Limit,
		}, nil

	case o.Order != nil:
		if o.Order.Paging == nil {
			return nil, fmt.Errorf("%w: orderOptions requires pagingOptions", ErrConfiguration)
		}
		if o.Order.Field == "" {
			return nil, fmt.Errorf("%w: orderOptions requires a field", ErrConfiguration)
		}
		dir, err := query.ParseDirection(o.Order.Direction)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
		return OrderSelector{
			Field:      o.Order.Field,
			Direction:  dir,
			StartAfter: o.Order.Paging.StartAfter,
			HasCursor:  o.Order.Paging.StartAfter != nil,
			Limit:      o.Order.Paging.Limit,
		}, nil

	case o.Paging != nil:
		id, err := cursorID(o.Paging.StartAfter)
		if err != nil {
			return nil, err
		}
		return PagingSelector{StartAfter: id, Limit: o.Paging.Limit}, nil
	}

	return DefaultSelector{}, nil
}

func cursorID(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	id, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: startAfter must be a document id, got %T", ErrConfiguration, v)
	}
	return id, nil
}

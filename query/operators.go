package query

// Operator is a comparison operator of a where-clause. The names follow the
// managed document store's query language.
type Operator string

// Supported operators.
const (
	LessThan           Operator = "<"
	LessThanOrEqual    Operator = "<="
	Equals             Operator = "=="
	NotEquals          Operator = "!="
	GreaterThanOrEqual Operator = ">="
	GreaterThan        Operator = ">"
	ArrayContains      Operator = "array-contains"
	ArrayContainsAny   Operator = "array-contains-any"
	In                 Operator = "in"
	NotIn              Operator = "not-in"
)

var operatorNames = map[Operator]struct{}{
	LessThan:           {},
	LessThanOrEqual:    {},
	Equals:             {},
	NotEquals:          {},
	GreaterThanOrEqual: {},
	GreaterThan:        {},
	ArrayContains:      {},
	ArrayContainsAny:   {},
	In:                 {},
	NotIn:              {},
}

// Valid reports whether op is a known operator.
func (op Operator) Valid() bool {
	_, ok := operatorNames[op]
	return ok
}

// takesList reports whether the operator expects a list value.
func (op Operator) takesList() bool {
	switch op {
	case In, NotIn, ArrayContainsAny:
		return true
	}
	return false
}

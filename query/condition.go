package query

import (
	"fmt"
	"reflect"
	"strings"
)

// Condition is a filter node: a single Clause or an And/Or combination.
type Condition interface {
	complies(d *doc) bool
	check() error
	string() string
}

// Clause is a single (field, operator, value) predicate.
type Clause struct {
	Field    string
	Operator Operator
	Value    any
}

// Where creates a clause condition.
func Where(field string, op Operator, value any) *Clause {
	return &Clause{Field: field, Operator: op, Value: value}
}

func (c *Clause) check() error {
	if c.Field == "" {
		return fmt.Errorf("%w: clause without field", ErrInvalidQuery)
	}
	if !c.Operator.Valid() {
		return &OperatorError{Field: c.Field, Operator: c.Operator}
	}
	if c.Operator.takesList() {
		if _, ok := listValues(c.Value); !ok {
			return fmt.Errorf("%w: operator %s on %q needs a list value, got %T", ErrInvalidQuery, c.Operator, c.Field, c.Value)
		}
	}
	return nil
}

func (c *Clause) string() string {
	return fmt.Sprintf("%s %s %v", c.Field, c.Operator, c.Value)
}

// AndCondition combines conditions with a logical AND.
type AndCondition struct {
	Conditions []Condition
}

// And combines multiple conditions with a logical _AND_ operator.
func And(conditions ...Condition) *AndCondition {
	return &AndCondition{Conditions: conditions}
}

func (c *AndCondition) complies(d *doc) bool {
	for _, cond := range c.Conditions {
		if !cond.complies(d) {
			return false
		}
	}
	return true
}

func (c *AndCondition) check() error {
	return checkAll(c.Conditions)
}

func (c *AndCondition) string() string {
	return joinConditions(c.Conditions, " and ")
}

// OrCondition combines conditions with a logical OR.
type OrCondition struct {
	Conditions []Condition
}

// Or combines multiple conditions with a logical _OR_ operator.
func Or(conditions ...Condition) *OrCondition {
	return &OrCondition{Conditions: conditions}
}

func (c *OrCondition) complies(d *doc) bool {
	for _, cond := range c.Conditions {
		if cond.complies(d) {
			return true
		}
	}
	return false
}

func (c *OrCondition) check() error {
	if len(c.Conditions) == 0 {
		return fmt.Errorf("%w: empty or-condition", ErrInvalidQuery)
	}
	return checkAll(c.Conditions)
}

func (c *OrCondition) string() string {
	return joinConditions(c.Conditions, " or ")
}

func checkAll(conditions []Condition) error {
	for _, cond := range conditions {
		if cond == nil {
			return fmt.Errorf("%w: nil condition", ErrInvalidQuery)
		}
		if err := cond.check(); err != nil {
			return err
		}
	}
	return nil
}

func joinConditions(conditions []Condition, sep string) string {
	all := make([]string, 0, len(conditions))
	for _, cond := range conditions {
		all = append(all, cond.string())
	}
	return fmt.Sprintf("(%s)", strings.Join(all, sep))
}

// listValues flattens slice and array values into []any.
func listValues(v any) ([]any, bool) {
	if list, ok := v.([]any); ok {
		return list, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// ListValues exposes the list value of a list operator clause to backends.
func (c *Clause) ListValues() []any {
	list, _ := listValues(c.Value)
	return list
}

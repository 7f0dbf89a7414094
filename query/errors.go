package query

import (
	"errors"
	"fmt"
)

// ErrInvalidQuery is returned by Check for malformed queries.
var ErrInvalidQuery = errors.New("invalid query")

// OperatorError is returned for unknown or unsupported operators.
type OperatorError struct {
	Field    string
	Operator Operator
}

func (oe *OperatorError) Error() string {
	return fmt.Sprintf("unknown or unsupported operator %q on field %q", string(oe.Operator), oe.Field)
}

func (oe *OperatorError) Unwrap() error {
	return ErrInvalidQuery
}

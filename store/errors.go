package store

import "errors"

// Errors.
var (
	ErrNotFound        = errors.New("document not found")
	ErrUnknownDriver   = errors.New("unknown storage driver")
	ErrDriverExists    = errors.New("factory for this driver already exists")
	ErrMissingSettings = errors.New("missing connection settings")
)

package collection

import "errors"

var (
	// ErrConfiguration reports a contract violation by the caller: bad shape
	// declarations or an illegal combination of query options.
	ErrConfiguration = errors.New("configuration error")

	// ErrIDRequired is returned by CreateRecord when an id was demanded but
	// the record has none.
	ErrIDRequired = errors.New("id required")

	// ErrConflict is returned by CreateRecord when a document already exists
	// under the requested id.
	ErrConflict = errors.New("document already exists")

	// ErrBatchTooLarge is returned by CreateRecords above MaxBatchSize.
	ErrBatchTooLarge = errors.New("batch too large")

	// ErrShapeResolution is returned when an update payload names no
	// declared shape.
	ErrShapeResolution = errors.New("cannot derive shape")
)

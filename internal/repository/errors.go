package repository

import "errors"

var (
	// ErrNotFound is returned when a requested payment does not exist.
	ErrNotFound = errors.New("payment not found")

	// ErrDuplicateTransaction is returned when an insert would violate the
	// (transaction_id, provider) uniqueness constraint.
	ErrDuplicateTransaction = errors.New("duplicate transaction id for provider")

	// ErrStaleStatus is returned when a guarded status update matched no row
	// because the record's status changed since it was read.
	ErrStaleStatus = errors.New("payment status changed concurrently")
)

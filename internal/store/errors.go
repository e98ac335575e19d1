package store

import "errors"

var (
	// ErrConflict marks a transaction aborted by a concurrent writer. It is
	// retried by WithinTx and never returned to callers directly.
	ErrConflict = errors.New("transaction conflict")

	// ErrTransient is returned once conflict retries are exhausted.
	ErrTransient = errors.New("store temporarily unavailable")
)

package store

import "errors"

// Predefined errors for the store layer.
var (
	// ErrNotFound indicates that a requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrConflict indicates a conflict, e.g., trying to create a resource that already exists.
	ErrConflict = errors.New("conflict")

	// ErrStaleSnapshot is returned when a payout tries to complete wallet entries
	// that are no longer pending.
	ErrStaleSnapshot = errors.New("wallet entries changed since snapshot")
)

package storage

import "errors"

// Sentinel errors shared by every store implementation. Results and inputs
// are written once and never updated, so a key collision always means the
// caller re-submitted work, never a lost update.
var (
	// ErrNotFound signals that no record exists for the given key.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey signals an insert whose key is already taken.
	ErrDuplicateKey = errors.New("duplicate key: records are immutable once written")

	// ErrInvalidInput signals a record rejected by validation before it
	// reaches the backend.
	ErrInvalidInput = errors.New("invalid input")
)

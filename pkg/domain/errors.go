package domain

import "errors"

// Sentinel errors returned by storage operations.
var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrCollectionNotFound is returned when a collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrDuplicateKey is returned when a write violates a unique index.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidID is returned for empty or malformed document ids.
	ErrInvalidID = errors.New("invalid document id")
)

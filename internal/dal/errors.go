package dal

import "errors"

var (
	// ErrNotFound is returned when no document matches the requested key
	ErrNotFound = errors.New("document not found")
	// ErrConflict is returned when a conditional write finds the document
	// in a different state than expected
	ErrConflict = errors.New("document changed concurrently")
	// ErrLocked is returned when the seed lock is already held
	ErrLocked = errors.New("store is locked")
)

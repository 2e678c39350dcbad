package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a reference does not match any snapshot
	ErrNotFound = errors.New("snapshot not found")

	// ErrAmbiguous is returned when a name matches more than one snapshot
	ErrAmbiguous = errors.New("snapshot name is ambiguous")

	// ErrInvalidName is returned when a snapshot name could be mistaken for
	// an id or a reserved reference
	ErrInvalidName = errors.New("invalid snapshot name")

	// ErrInvalidSchema is returned when a schema violates model invariants
	ErrInvalidSchema = errors.New("invalid schema")

	// ErrStorage is returned when the store cannot be read or written
	ErrStorage = errors.New("snapshot storage failure")

	// ErrCorrupt is returned when a stored payload cannot be decoded or fails
	// its checksum
	ErrCorrupt = errors.New("snapshot payload is corrupt")
)

// Error records the store operation and snapshot reference that failed
type Error struct {
	Op  string
	Ref string
	Err error
}

func (e *Error) Error() string {
	if e.Ref == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s %q: %v", e.Op, e.Ref, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func opError(op, ref string, err error) error {
	return &Error{Op: op, Ref: ref, Err: err}
}

func storageError(op, ref string, err error) error {
	return &Error{Op: op, Ref: ref, Err: fmt.Errorf("%w: %w", ErrStorage, err)}
}

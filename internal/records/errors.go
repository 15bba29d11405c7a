package records

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no record carries the requested identifier.
	ErrNotFound = errors.New("student not found")

	// ErrDuplicateID is returned by Add when identifier uniqueness is enforced.
	ErrDuplicateID = errors.New("student identifier already in use")

	// ErrInvalidRecord is returned by Record.Validate.
	ErrInvalidRecord = errors.New("invalid student record")

	// ErrNoSnapshot is returned by a Snapshotter that has nothing stored yet.
	ErrNoSnapshot = errors.New("no snapshot stored")
)

// PersistenceError reports a failed snapshot read or write.
type PersistenceError struct {
	Op  string // "load" or "save"
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("snapshot %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

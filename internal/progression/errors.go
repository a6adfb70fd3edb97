package progression

import (
	"errors"
	"fmt"
)

// ErrInvalidInput reports a request rejected before storage was touched.
var ErrInvalidInput = errors.New("invalid input")

// ErrDuplicateSession reports an exact re-submission of a session the user
// already recorded. Nothing is written or accrued when it is returned.
var ErrDuplicateSession = errors.New("duplicate session")

// StorageError indicates the persistence layer failed or timed out. The
// operation was not applied.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

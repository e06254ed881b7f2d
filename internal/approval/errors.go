package approval

import (
	"errors"
	"fmt"

	"github.com/gdg-garage/vegfest-api/internal/authz"
)

var (
	ErrNotFound      = errors.New("registration not found")
	ErrInvalidStatus = errors.New("invalid status")
	ErrDuplicateVote = errors.New("admin has already voted on this registration")
	ErrNotSubmitted  = errors.New("registration has not been submitted")
	ErrForbidden     = authz.ErrForbidden

	errAttemptsExhausted = errors.New("gave up after repeated version conflicts")
)

// StorageError wraps a persistence failure. Nothing was committed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

package order

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the referenced item does not exist.
	ErrNotFound = errors.New("item not found")

	// ErrInconsistent means stored positions are no longer dense.
	// Running Repair restores them.
	ErrInconsistent = errors.New("positions are not dense")
)

// ValidationError rejects caller input before anything is written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// StorageError wraps a failure of the storage collaborator.
// Callers may retry; no partial write is visible after one.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: storage: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsValidation reports whether err carries a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsStorage reports whether err carries a *StorageError.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

func notFound(id string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// wrap classifies an error coming out of Store.Atomic. Domain errors pass
// through untouched; everything else is a storage failure.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || IsValidation(err) || IsStorage(err) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

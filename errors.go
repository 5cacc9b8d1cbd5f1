package pocketvec

import (
	"errors"
	"fmt"

	"github.com/pocketvec/pocketvec/codec"
	"github.com/pocketvec/pocketvec/internal/fs"
	"github.com/pocketvec/pocketvec/internal/vectorstore"
)

// The closed error taxonomy. Every public operation fails with exactly one
// of these (possibly wrapped with detail); errors.Is works against all of
// them.
var (
	// ErrBuffer indicates a missing, empty, misaligned or mis-sized input
	// buffer.
	ErrBuffer = errors.New("invalid buffer")

	// ErrDuplicateKey indicates an Add of a key that is already live.
	ErrDuplicateKey = errors.New("key already present")

	// ErrKeyNotFound indicates a Remove of an unknown key.
	ErrKeyNotFound = errors.New("key not found")

	// ErrConfig indicates an invalid construction argument.
	ErrConfig = errors.New("invalid configuration")

	// ErrBusy indicates a conflicting background operation is in flight.
	ErrBusy = errors.New("background operation in progress")

	// ErrDeleted indicates the index has been destroyed with Close.
	ErrDeleted = errors.New("index has been deleted")

	// ErrPath indicates an empty or traversal-suspect path argument.
	ErrPath = errors.New("invalid path")

	// ErrFormat indicates an on-disk magic, version or size check failed.
	ErrFormat = errors.New("invalid snapshot format")

	// ErrCorrupted indicates a snapshot checksum mismatch.
	ErrCorrupted = errors.New("snapshot corrupted")

	// ErrIO wraps an underlying file-system or blob-store failure.
	ErrIO = errors.New("io failure")

	// ErrAllocation indicates a denied memory request.
	ErrAllocation = errors.New("allocation failed")

	// ErrInternal indicates an invariant violation. Treat as a defect.
	ErrInternal = errors.New("internal invariant violation")
)

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// translateError normalizes internal-package errors into the public
// taxonomy at the facade boundary.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, vectorstore.ErrDuplicateKey):
		return fmt.Errorf("%w: %w", ErrDuplicateKey, err)
	case errors.Is(err, vectorstore.ErrKeyNotFound):
		return fmt.Errorf("%w: %w", ErrKeyNotFound, err)
	case errors.Is(err, fs.ErrPath):
		return fmt.Errorf("%w: %w", ErrPath, err)
	case errors.Is(err, codec.ErrDimensionMismatch):
		return &ErrDimensionMismatch{cause: err}
	case errors.Is(err, codec.ErrFormat):
		return fmt.Errorf("%w: %w", ErrFormat, err)
	case errors.Is(err, codec.ErrCorrupted):
		return fmt.Errorf("%w: %w", ErrCorrupted, err)
	}
	return err
}

package blobstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a named blob does not exist.
//
// Implementations return an error satisfying errors.Is(err, ErrNotFound).
var ErrNotFound = errors.New("blob not found")

// Store is a named-blob abstraction for snapshot storage.
type Store interface {
	// Put writes a blob atomically: a concurrent Get sees either the old
	// or the new content, never a mix.
	Put(ctx context.Context, name string, data []byte) error

	// Get reads a whole blob.
	Get(ctx context.Context, name string) ([]byte, error)

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the blob names under prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

package pocketvec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/pocketvec/pocketvec/blobstore"
	"github.com/pocketvec/pocketvec/codec"
	"github.com/pocketvec/pocketvec/internal/fs"
)

// Save serializes the whole index to path. Deleted slots are compacted
// away; the write is atomic (temp file + rename). A leading "file://" is
// stripped; paths containing ".." are rejected.
func (i *Index) Save(path string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return ErrDeleted
	}
	if i.indexing.Load() {
		return ErrBusy
	}

	clean, err := fs.Sanitize(path)
	if err != nil {
		return translateError(err)
	}

	data, err := i.encodeLocked()
	if err != nil {
		i.logger.LogSnapshot("save", clean, err)
		return err
	}
	if err := fs.WriteAtomic(clean, data); err != nil {
		err = fmt.Errorf("%w: %w", ErrIO, err)
		i.logger.LogSnapshot("save", clean, err)
		return err
	}
	i.logger.LogSnapshot("save", clean, nil)
	return nil
}

// Load replaces the index contents with a snapshot read from path. The
// snapshot's dimensionality must match this index's configuration; metric,
// quantization and graph parameters are adopted from the snapshot. After a
// format or corruption failure the index is destroyed — partial state is
// not recoverable.
func (i *Index) Load(path string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return ErrDeleted
	}
	if i.indexing.Load() {
		return ErrBusy
	}

	clean, err := fs.Sanitize(path)
	if err != nil {
		return translateError(err)
	}

	data, err := os.ReadFile(clean)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrIO, err)
		i.logger.LogSnapshot("load", clean, err)
		return err
	}

	err = i.decodeLocked(data)
	i.logger.LogSnapshot("load", clean, err)
	return err
}

// SaveToStore writes the snapshot as a named blob, e.g. to S3 or MinIO.
func (i *Index) SaveToStore(ctx context.Context, store blobstore.Store, name string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return ErrDeleted
	}
	if i.indexing.Load() {
		return ErrBusy
	}
	if name == "" {
		return fmt.Errorf("%w: empty blob name", ErrPath)
	}

	data, err := i.encodeLocked()
	if err != nil {
		return err
	}
	if err := store.Put(ctx, name, data); err != nil {
		err = fmt.Errorf("%w: %w", ErrIO, err)
		i.logger.LogSnapshot("save", name, err)
		return err
	}
	i.logger.LogSnapshot("save", name, nil)
	return nil
}

// LoadFromStore replaces the index contents with a named snapshot blob.
// Failure semantics match Load.
func (i *Index) LoadFromStore(ctx context.Context, store blobstore.Store, name string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return ErrDeleted
	}
	if i.indexing.Load() {
		return ErrBusy
	}
	if name == "" {
		return fmt.Errorf("%w: empty blob name", ErrPath)
	}

	data, err := store.Get(ctx, name)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrIO, err)
		i.logger.LogSnapshot("load", name, err)
		return err
	}

	err = i.decodeLocked(data)
	i.logger.LogSnapshot("load", name, err)
	return err
}

func (i *Index) encodeLocked() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := codec.Write(&buf, i.graph, i.opts.SnapshotCompression); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInternal, err)
	}
	return buf.Bytes(), nil
}

func (i *Index) decodeLocked(data []byte) error {
	loaded, err := codec.Read(bytes.NewReader(data), i.dims)
	if err != nil {
		err = translateError(err)
		if errors.Is(err, ErrFormat) || errors.Is(err, ErrCorrupted) {
			// Partial state is not recoverable; poison the index.
			i.closed = true
			i.generation.Add(1)
			i.graph = nil
		}
		return err
	}

	opts := loaded.Options()
	i.graph = loaded
	i.metric = opts.Metric
	i.kind = loaded.Store().Kind()
	i.opts.M = opts.M
	i.opts.EFConstruction = opts.EFConstruction
	i.opts.EFSearch = opts.EFSearch
	i.opts.Metric = opts.Metric.String()
	i.opts.Quantization = i.kind.String()
	return nil
}

package pocketvec

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/pocketvec/pocketvec/codec"
	"github.com/pocketvec/pocketvec/internal/fs"
)

// progressLogInterval bounds how often the worker emits progress events.
const progressLogInterval = 200 * time.Millisecond

// AddBatch inserts many vectors on the background worker. keys[n] owns
// vectors[n*D : (n+1)*D]; both buffers are cloned before AddBatch returns,
// so the caller may reuse them immediately. Only one background operation
// may be in flight; a second fails with ErrBusy. Completion is observed by
// polling IsIndexing and reading LastResult.
func (i *Index) AddBatch(keys []int64, vectors []float32) error {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return ErrDeleted
	}
	if i.indexing.Load() || !i.busy.TryAcquire(1) {
		i.mu.Unlock()
		return ErrBusy
	}
	if len(keys) == 0 || len(vectors) != len(keys)*i.dims {
		i.busy.Release(1)
		i.mu.Unlock()
		return fmt.Errorf("%w: %d keys require %d elements, got %d",
			ErrBuffer, len(keys), len(keys)*i.dims, len(vectors))
	}

	// Copy the caller's buffers: they are borrowed only for this call.
	ownedKeys := make([]int64, len(keys))
	copy(ownedKeys, keys)
	ownedVectors := make([]float32, len(vectors))
	copy(ownedVectors, vectors)

	// Grow once up front instead of doubling mid-batch.
	i.graph.Store().Reserve(i.graph.Store().Len() + len(ownedKeys))

	// Fit the i8 scale from the whole batch when it is the first data in.
	if i.graph.Store().Len() == 0 {
		i.graph.Store().FitScale(ownedVectors)
	}

	i.beginBackground(len(ownedKeys))
	i.mu.Unlock()

	go i.runInsertLoop(func(n int) (int64, []float32) {
		return ownedKeys[n], ownedVectors[n*i.dims : (n+1)*i.dims]
	}, len(ownedKeys))

	return nil
}

// LoadVectorsFromFile bulk-loads a headerless little-endian float32 file of
// N × D elements on the background worker. Keys are assigned 0..N-1, so the
// loader is intended for freshly constructed indexes; a clash with an
// existing key stops the load at that item (earlier items stay inserted) and
// the error is reported through LastResult. For i8 indexes the loader
// quantizes on the fly. The file size must be an exact multiple of D × 4.
func (i *Index) LoadVectorsFromFile(path string) error {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return ErrDeleted
	}

	if i.indexing.Load() || !i.busy.TryAcquire(1) {
		i.mu.Unlock()
		return ErrBusy
	}

	fail := func(err error) error {
		i.busy.Release(1)
		i.mu.Unlock()
		return err
	}

	clean, err := fs.Sanitize(path)
	if err != nil {
		return fail(translateError(err))
	}

	info, err := os.Stat(clean)
	if err != nil {
		return fail(fmt.Errorf("%w: %w", ErrIO, err))
	}
	stride := int64(i.dims) * 4
	if info.Size()%stride != 0 {
		return fail(fmt.Errorf("%w: file size %d is not a multiple of %d", ErrFormat, info.Size(), stride))
	}
	total := int(info.Size() / stride)
	i.beginBackground(total)
	i.mu.Unlock()

	go func() {
		start := time.Now()

		f, err := os.Open(clean)
		if err != nil {
			i.finishBackground(0, start, fmt.Errorf("%w: %w", ErrIO, err))
			return
		}
		vectors, err := codec.ReadRawVectors(f, i.dims)
		f.Close()
		if err != nil {
			i.finishBackground(0, start, translateError(err))
			return
		}
		count := len(vectors) / i.dims
		i.total.Store(uint64(count))

		i.mu.Lock()
		if !i.closed {
			i.graph.Store().Reserve(i.graph.Store().Len() + count)
			if i.graph.Store().Len() == 0 {
				i.graph.Store().FitScale(vectors)
			}
		}
		i.mu.Unlock()

		i.insertLoop(func(n int) (int64, []float32) {
			return int64(n), vectors[n*i.dims : (n+1)*i.dims]
		}, count, start)
	}()

	return nil
}

// beginBackground publishes the indexing state. Callers hold the mutex and
// the busy semaphore.
func (i *Index) beginBackground(total int) {
	i.current.Store(0)
	i.total.Store(uint64(total))
	i.indexing.Store(true)
}

// runInsertLoop is the goroutine entry wrapper around insertLoop.
func (i *Index) runInsertLoop(item func(n int) (int64, []float32), total int) {
	i.insertLoop(item, total, time.Now())
}

// insertLoop drives a background insertion: the mutex is taken per item so
// synchronous searches interleave between items, the generation counter is
// checked under the mutex so Close cancels at an item boundary, and the
// outcome lands in lastResult.
func (i *Index) insertLoop(item func(n int) (int64, []float32), total int, start time.Time) {
	gen := i.generation.Load()
	limiter := rate.NewLimiter(rate.Every(progressLogInterval), 1)

	var err error
	done := 0
	for n := 0; n < total; n++ {
		key, vec := item(n)

		i.mu.Lock()
		if i.closed || i.generation.Load() != gen {
			i.mu.Unlock()
			err = ErrDeleted
			break
		}
		insErr := i.graph.Insert(key, vec)
		i.mu.Unlock()

		if insErr != nil {
			err = fmt.Errorf("item %d: %w", n, translateError(insErr))
			break
		}

		done++
		i.current.Store(uint64(done))
		if limiter.Allow() {
			i.logger.LogBatchProgress(done, total)
		}
	}

	i.finishBackground(done, start, err)
}

// finishBackground records the outcome, clears the indexing flag and
// releases the busy slot.
func (i *Index) finishBackground(count int, start time.Time, err error) {
	i.mu.Lock()
	if err != nil {
		i.lastErr = err
		i.lastResult = BatchResult{}
	} else {
		i.lastErr = nil
		i.lastResult = BatchResult{Duration: time.Since(start), Count: count}
	}
	i.mu.Unlock()

	i.logger.LogBatchDone(count, err)
	i.indexing.Store(false)
	i.busy.Release(1)
}

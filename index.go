package pocketvec

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"golang.org/x/sync/semaphore"

	"github.com/pocketvec/pocketvec/distance"
	"github.com/pocketvec/pocketvec/hnsw"
	"github.com/pocketvec/pocketvec/internal/vectorstore"
)

const (
	// nodeHeaderBytes and baseOverheadBytes parameterize the MemoryUsage
	// estimate. The estimate deliberately avoids walking graph internals so
	// it stays safe to read during background indexing.
	nodeHeaderBytes   = 64
	baseOverheadBytes = 1 << 20
)

// SearchResult is one search hit: an external key and its distance to the
// query under the index metric.
type SearchResult struct {
	Key      int64
	Distance float32
}

// AddResult reports a completed synchronous insertion.
type AddResult struct {
	Duration time.Duration
}

// BatchResult reports a completed background operation.
type BatchResult struct {
	Duration time.Duration
	Count    int
}

// Progress describes background-indexing progress.
type Progress struct {
	Current    int
	Total      int
	Percentage float64
}

// SearchOptions tunes a single Search call.
type SearchOptions struct {
	// AllowedKeys restricts the result set (not the traversal) to the
	// listed keys.
	AllowedKeys []int64

	// EF overrides the search beam width for this call. The effective
	// width is never below k.
	EF int
}

// Index is an embeddable approximate-nearest-neighbor vector index.
//
// Synchronous operations are guarded by one mutex; AddBatch and
// LoadVectorsFromFile run on a background worker that takes the mutex per
// item, so Search stays available while a batch is indexing. An Index must
// not have synchronous methods invoked from multiple goroutines at once;
// the background worker is the only concurrency the index itself creates.
type Index struct {
	mu    sync.Mutex
	graph *hnsw.Graph

	dims   int
	kind   vectorstore.Kind
	metric distance.Metric
	opts   Options
	logger *Logger

	closed     bool
	generation atomic.Uint64

	busy     *semaphore.Weighted
	indexing atomic.Bool
	current  atomic.Uint64
	total    atomic.Uint64

	lastResult BatchResult
	lastErr    error
}

// New creates an index for vectors of the given dimensionality.
//
//	idx, err := pocketvec.New(384, func(o *pocketvec.Options) {
//	    o.Quantization = "i8"
//	    o.Metric = "l2sq"
//	})
func New(dimensions int, optFns ...func(o *Options)) (*Index, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	kind, metric, err := opts.resolve(dimensions)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = NoopLogger()
	}

	store := vectorstore.New(kind, dimensions, opts.InitialCapacity, opts.QuantizationScale)
	graph := hnsw.New(store, func(o *hnsw.Options) {
		o.M = opts.M
		o.EFConstruction = opts.EFConstruction
		o.EFSearch = opts.EFSearch
		o.Metric = metric
		o.RandomSeed = opts.RandomSeed
	})

	return &Index{
		graph:  graph,
		dims:   dimensions,
		kind:   kind,
		metric: metric,
		opts:   opts,
		logger: logger,
		busy:   semaphore.NewWeighted(1),
	}, nil
}

// Dimensions returns the per-vector element count.
func (i *Index) Dimensions() int { return i.dims }

// Metric returns the wire name of the index metric.
func (i *Index) Metric() string { return i.metric.String() }

// Quantization returns the wire name of the stored representation.
func (i *Index) Quantization() string { return i.kind.String() }

// ISA names the SIMD kernel variant selected at startup.
func (i *Index) ISA() string { return distance.ISA() }

// Count returns the number of live vectors.
func (i *Index) Count() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return 0
	}
	return i.graph.Store().Len()
}

// MemoryUsage estimates the resident footprint in bytes:
// vector payload plus per-node graph overhead plus a fixed base.
func (i *Index) MemoryUsage() int64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return 0
	}

	count := int64(i.graph.Store().Len())
	vectorBytes := count * int64(i.dims) * int64(i.kind.ElementSize())
	graphBytes := count * (nodeHeaderBytes + int64(2*i.opts.M)*8)
	return vectorBytes + graphBytes + baseOverheadBytes
}

// IsIndexing reports whether a background operation is in flight.
func (i *Index) IsIndexing() bool {
	return i.indexing.Load()
}

// IndexingProgress reports background progress counters. Between background
// operations the previous totals remain readable.
func (i *Index) IndexingProgress() Progress {
	current := int(i.current.Load())
	total := int(i.total.Load())

	var percentage float64
	if total > 0 {
		percentage = float64(current) / float64(total)
	}
	return Progress{Current: current, Total: total, Percentage: percentage}
}

// LastResult returns the outcome of the most recent background operation.
// A stored background error is re-raised once and cleared.
func (i *Index) LastResult() (BatchResult, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return BatchResult{}, ErrDeleted
	}

	if i.lastErr != nil {
		err := i.lastErr
		i.lastErr = nil
		return BatchResult{}, err
	}
	return i.lastResult, nil
}

// Close destroys the index. Every subsequent operation fails with
// ErrDeleted; a running background operation stops at its next item
// boundary. Close is idempotent.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return nil
	}
	i.closed = true
	i.generation.Add(1)
	i.graph = nil
	return nil
}

// validateVector runs the buffer and dimension gates shared by every
// vector-accepting operation.
func (i *Index) validateVector(vec []float32) error {
	if len(vec) == 0 {
		return ErrBuffer
	}
	if len(vec) != i.dims {
		return &ErrDimensionMismatch{Expected: i.dims, Actual: len(vec)}
	}
	return nil
}

// Add inserts a vector under a caller-chosen key. The buffer is copied
// before Add returns. Adding a live key fails with ErrDuplicateKey;
// use Update to replace.
func (i *Index) Add(key int64, vec []float32) (AddResult, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return AddResult{}, ErrDeleted
	}
	if err := i.validateVector(vec); err != nil {
		return AddResult{}, err
	}

	start := time.Now()
	err := translateError(i.graph.Insert(key, vec))
	i.logger.LogAdd(key, err)
	if err != nil {
		return AddResult{}, err
	}
	return AddResult{Duration: time.Since(start)}, nil
}

// Remove deletes a key. The slot is tombstoned; storage is reclaimed on the
// next save/load cycle.
func (i *Index) Remove(key int64) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return ErrDeleted
	}
	if i.indexing.Load() {
		return ErrBusy
	}

	err := translateError(i.graph.Remove(key))
	i.logger.LogRemove(key, err)
	return err
}

// Update replaces the vector under key, treating an unknown key as an Add.
func (i *Index) Update(key int64, vec []float32) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return ErrDeleted
	}
	if i.indexing.Load() {
		return ErrBusy
	}
	if err := i.validateVector(vec); err != nil {
		return err
	}

	return translateError(i.graph.Update(key, vec))
}

// Search returns the k nearest neighbors of vec, ascending by distance,
// ties broken by smaller key. A non-positive k returns no results.
func (i *Index) Search(vec []float32, k int, optFns ...func(o *SearchOptions)) ([]SearchResult, error) {
	var opts SearchOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	var allowed *roaring64.Bitmap
	if opts.AllowedKeys != nil {
		allowed = roaring64.New()
		for _, key := range opts.AllowedKeys {
			allowed.Add(uint64(key))
		}
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return nil, ErrDeleted
	}
	if err := i.validateVector(vec); err != nil {
		return nil, err
	}

	ef := i.opts.EFSearch
	if opts.EF > 0 {
		ef = opts.EF
	}

	hits := i.graph.SearchEF(vec, k, ef, allowed)
	results := make([]SearchResult, len(hits))
	for n, h := range hits {
		results[n] = SearchResult{Key: h.Key, Distance: h.Distance}
	}
	i.logger.LogSearch(k, len(results), nil)
	return results, nil
}

// WithAllowedKeys restricts a Search's results to the given keys.
func WithAllowedKeys(keys []int64) func(o *SearchOptions) {
	return func(o *SearchOptions) {
		o.AllowedKeys = keys
	}
}

// GetItemVector returns a freshly allocated copy of key's vector
// (dequantized for i8 indexes), or ok=false if the key is not live.
func (i *Index) GetItemVector(key int64) (vec []float32, ok bool, err error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return nil, false, ErrDeleted
	}

	vec, ok = i.graph.Store().Vector(key)
	return vec, ok, nil
}

// Reserve pre-grows storage to hold at least n vectors.
func (i *Index) Reserve(n int) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return ErrDeleted
	}
	i.graph.Store().Reserve(n)
	return nil
}

package pocketvec

import (
	"fmt"

	"github.com/pocketvec/pocketvec/codec"
	"github.com/pocketvec/pocketvec/distance"
	"github.com/pocketvec/pocketvec/hnsw"
	"github.com/pocketvec/pocketvec/internal/vectorstore"
)

// Compression selects the optional snapshot frame written by Save.
type Compression = codec.Compression

const (
	// CompressionNone writes the raw snapshot layout.
	CompressionNone = codec.CompressionNone
	// CompressionS2 wraps snapshots in an s2 frame.
	CompressionS2 = codec.CompressionS2
	// CompressionLZ4 wraps snapshots in an lz4 frame.
	CompressionLZ4 = codec.CompressionLZ4
)

// Options configures a new Index.
type Options struct {
	// Quantization selects the stored representation: "f32" or "i8".
	Quantization string

	// Metric selects the distance metric:
	// "cos", "l2sq", "ip", "hamming" or "jaccard".
	Metric string

	// M is the maximum number of graph connections per layer above 0.
	M int

	// EFConstruction is the construction-time beam width.
	EFConstruction int

	// EFSearch is the default search-time beam width.
	EFSearch int

	// RandomSeed seeds the layer-assignment PRNG. Indexes built with the
	// same seed and insertion order have identical layouts.
	RandomSeed int64

	// QuantizationScale pins the i8 quantizer scale. Zero defers to a
	// one-shot fit from the first inserted vectors.
	QuantizationScale float32

	// InitialCapacity pre-reserves slots. Capacity doubles on demand.
	InitialCapacity int

	// SnapshotCompression wraps saved snapshots in a compressed frame.
	// Load always auto-detects.
	SnapshotCompression Compression

	// Logger receives debug/error events. Nil means silent.
	Logger *Logger
}

// DefaultOptions holds the defaults applied by New.
var DefaultOptions = Options{
	Quantization:    "f32",
	Metric:          "cos",
	M:               hnsw.DefaultM,
	EFConstruction:  hnsw.DefaultEFConstruction,
	EFSearch:        hnsw.DefaultEFSearch,
	RandomSeed:      1,
	InitialCapacity: 100,
}

// resolve validates the option strings against the construction argument
// gates and returns the internal kinds.
func (o *Options) resolve(dimensions int) (vectorstore.Kind, distance.Metric, error) {
	if dimensions <= 0 {
		return 0, 0, fmt.Errorf("%w: dimensions must be positive", ErrConfig)
	}

	kind, ok := vectorstore.ParseKind(o.Quantization)
	if !ok {
		return 0, 0, fmt.Errorf("%w: unknown quantization %q", ErrConfig, o.Quantization)
	}
	metric, ok := distance.ParseMetric(o.Metric)
	if !ok {
		return 0, 0, fmt.Errorf("%w: unknown metric %q", ErrConfig, o.Metric)
	}

	if o.M < 2 {
		return 0, 0, fmt.Errorf("%w: M must be at least 2", ErrConfig)
	}
	if o.EFConstruction <= 0 || o.EFSearch <= 0 {
		return 0, 0, fmt.Errorf("%w: ef parameters must be positive", ErrConfig)
	}
	if o.InitialCapacity <= 0 {
		o.InitialCapacity = DefaultOptions.InitialCapacity
	}
	return kind, metric, nil
}

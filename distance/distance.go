// Package distance provides the public API for vector distance calculations.
// All metrics return a score where lower means more similar, so results from
// different metrics order the same way.
package distance

import (
	"fmt"
	"math"
	"strings"

	"github.com/pocketvec/pocketvec/internal/simd"
)

// BitThreshold is the cut-off above which a float32 element counts as a set
// bit for the Hamming and Jaccard metrics.
const BitThreshold = 0.5

// Metric identifies a distance metric.
type Metric uint8

const (
	// MetricCos is cosine distance: 1 - cos(a, b). Range [0, 2].
	MetricCos Metric = iota
	// MetricL2Sq is squared Euclidean distance (no square root).
	MetricL2Sq
	// MetricIP is negated inner product, so that smaller is more similar.
	MetricIP
	// MetricHamming counts differing bits after thresholding at BitThreshold.
	MetricHamming
	// MetricJaccard is 1 - |A∩B| / |A∪B| over the thresholded index sets.
	MetricJaccard
)

// String returns the wire name of the metric.
func (m Metric) String() string {
	switch m {
	case MetricCos:
		return "cos"
	case MetricL2Sq:
		return "l2sq"
	case MetricIP:
		return "ip"
	case MetricHamming:
		return "hamming"
	case MetricJaccard:
		return "jaccard"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(m))
	}
}

// ParseMetric parses a wire name into a Metric.
func ParseMetric(s string) (Metric, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cos":
		return MetricCos, true
	case "l2sq":
		return MetricL2Sq, true
	case "ip":
		return MetricIP, true
	case "hamming":
		return MetricHamming, true
	case "jaccard":
		return MetricJaccard, true
	default:
		return MetricCos, false
	}
}

// ISA names the kernel variant selected at startup:
// "serial", "neon", "sve" or "avx2".
func ISA() string {
	return simd.Active().String()
}

// Dot calculates the dot product of two vectors.
// Assumes vectors are the same length (caller's responsibility).
func Dot(a, b []float32) float32 {
	return simd.Dot(a, b)
}

// SquaredL2 calculates the squared L2 distance between two vectors.
// Assumes vectors are the same length (caller's responsibility).
func SquaredL2(a, b []float32) float32 {
	return simd.SquaredL2(a, b)
}

// Cosine calculates the cosine distance 1 - cos(a, b).
// Zero-norm inputs score 1.0, the distance of orthogonal vectors.
func Cosine(a, b []float32) float32 {
	ab := simd.Dot(a, b)
	aa := simd.Dot(a, a)
	bb := simd.Dot(b, b)
	if aa == 0 || bb == 0 {
		return 1.0
	}
	return 1.0 - ab/float32(math.Sqrt(float64(aa)*float64(bb)))
}

// InnerProduct calculates the negated dot product so that lower means more
// similar, consistent with the other metrics.
func InnerProduct(a, b []float32) float32 {
	return -simd.Dot(a, b)
}

// Hamming counts the elements whose thresholded bit values differ.
func Hamming(a, b []float32) float32 {
	return float32(simd.BitMismatch(a, b, BitThreshold))
}

// Jaccard calculates 1 - |A∩B| / |A∪B| over the thresholded index sets.
// Two empty sets score 0.0.
func Jaccard(a, b []float32) float32 {
	intersection, union := simd.Overlap(a, b, BitThreshold)
	if union == 0 {
		return 0.0
	}
	return 1.0 - float32(intersection)/float32(union)
}

// Func is a function type for distance calculation between float32 vectors.
type Func func(a, b []float32) float32

// Provider returns the distance function for the given metric.
func Provider(m Metric) (Func, error) {
	switch m {
	case MetricCos:
		return Cosine, nil
	case MetricL2Sq:
		return SquaredL2, nil
	case MetricIP:
		return InnerProduct, nil
	case MetricHamming:
		return Hamming, nil
	case MetricJaccard:
		return Jaccard, nil
	default:
		return nil, fmt.Errorf("unsupported metric: %v", m)
	}
}

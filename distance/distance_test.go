package distance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosine(t *testing.T) {
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0, 0, 0}, []float32{1, 0, 0, 0}), 1e-6)
	assert.InDelta(t, 1.0, Cosine([]float32{1, 0, 0, 0}, []float32{0, 1, 0, 0}), 1e-6)
	assert.InDelta(t, 2.0, Cosine([]float32{1, 0}, []float32{-1, 0}), 1e-6)

	// 1 - 1/sqrt(2)
	assert.InDelta(t, 0.29289, Cosine([]float32{1, 0, 0, 0}, []float32{1, 1, 0, 0}), 1e-4)
}

func TestCosineZeroNorm(t *testing.T) {
	assert.Equal(t, float32(1.0), Cosine([]float32{0, 0, 0}, []float32{1, 2, 3}))
	assert.Equal(t, float32(1.0), Cosine([]float32{1, 2, 3}, []float32{0, 0, 0}))
	assert.Equal(t, float32(1.0), Cosine([]float32{0, 0, 0}, []float32{0, 0, 0}))
}

func TestSquaredL2(t *testing.T) {
	assert.InDelta(t, 0.0, SquaredL2([]float32{1, 0, 0}, []float32{1, 0, 0}), 1e-6)
	assert.InDelta(t, 2.0, SquaredL2([]float32{1, 0, 0}, []float32{0, 1, 0}), 1e-6)
	assert.InDelta(t, 2.0, SquaredL2([]float32{1, 0, 0}, []float32{0, 0, 1}), 1e-6)
}

func TestInnerProduct(t *testing.T) {
	assert.InDelta(t, -2.0, InnerProduct([]float32{1, 1}, []float32{1, 1}), 1e-6)
	assert.InDelta(t, 3.0, InnerProduct([]float32{1, -2}, []float32{1, 2}), 1e-6)
}

func TestHamming(t *testing.T) {
	assert.Equal(t, float32(0), Hamming([]float32{1, 0, 1}, []float32{1, 0, 1}))
	assert.Equal(t, float32(2), Hamming([]float32{1, 0, 1, 0}, []float32{0, 0, 0, 0}))
	// Values right at the threshold count as unset.
	assert.Equal(t, float32(1), Hamming([]float32{0.5, 0.6}, []float32{0.5, 0.4}))
}

func TestJaccard(t *testing.T) {
	// |A∩B| = 1, |A∪B| = 3
	assert.InDelta(t, 1.0-1.0/3.0, Jaccard([]float32{1, 1, 0, 0}, []float32{1, 0, 1, 0}), 1e-6)
	assert.Equal(t, float32(0), Jaccard([]float32{1, 1}, []float32{1, 1}))
	assert.Equal(t, float32(0), Jaccard([]float32{0, 0}, []float32{0, 0}))
}

func TestParseMetric(t *testing.T) {
	for _, name := range []string{"cos", "l2sq", "ip", "hamming", "jaccard"} {
		m, ok := ParseMetric(name)
		assert.True(t, ok, name)
		assert.Equal(t, name, m.String())
	}

	_, ok := ParseMetric("euclidean")
	assert.False(t, ok)
}

func TestProvider(t *testing.T) {
	for _, m := range []Metric{MetricCos, MetricL2Sq, MetricIP, MetricHamming, MetricJaccard} {
		fn, err := Provider(m)
		assert.NoError(t, err)
		assert.NotNil(t, fn)
	}

	_, err := Provider(Metric(99))
	assert.Error(t, err)
}

func TestISA(t *testing.T) {
	assert.Contains(t, []string{"serial", "neon", "sve", "avx2"}, ISA())
}

package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pocketvec/pocketvec/distance"
)

func TestPutLookupDrop(t *testing.T) {
	s := New(KindF32, 3, 4, 0)

	slot, err := s.Put(7, []float32{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, uint32(0), slot)
	assert.Equal(t, 1, s.Len())
	assert.True(t, s.Contains(7))

	_, err = s.Put(7, []float32{4, 5, 6})
	assert.ErrorIs(t, err, ErrDuplicateKey)

	v, ok := s.Vector(7)
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, v)

	// The returned vector is a defensive copy.
	v[0] = 99
	v2, _ := s.Vector(7)
	assert.Equal(t, float32(1), v2[0])

	dropped, err := s.Drop(7)
	require.NoError(t, err)
	assert.Equal(t, slot, dropped)
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Live(slot))

	_, err = s.Drop(7)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestSlotsAreNotReused(t *testing.T) {
	s := New(KindF32, 2, 2, 0)

	s.Put(1, []float32{1, 0})
	s.Drop(1)

	slot, err := s.Put(1, []float32{0, 1})
	require.NoError(t, err)
	assert.Equal(t, uint32(1), slot)
	assert.Equal(t, uint32(2), s.NextSlot())
}

func TestReserveDoubles(t *testing.T) {
	s := New(KindF32, 4, 2, 0)
	assert.Equal(t, 2, s.Capacity())

	s.Reserve(3)
	assert.Equal(t, 4, s.Capacity())

	s.Reserve(100)
	assert.Equal(t, 100, s.Capacity())

	// Never shrinks.
	s.Reserve(1)
	assert.Equal(t, 100, s.Capacity())
}

func TestGrowthPreservesVectors(t *testing.T) {
	s := New(KindF32, 2, 1, 0)
	for i := int64(0); i < 50; i++ {
		_, err := s.Put(i, []float32{float32(i), -float32(i)})
		require.NoError(t, err)
	}
	for i := int64(0); i < 50; i++ {
		v, ok := s.Vector(i)
		require.True(t, ok)
		assert.Equal(t, []float32{float32(i), -float32(i)}, v)
	}
}

func TestI8QuantizesOnPut(t *testing.T) {
	s := New(KindI8, 4, 4, 0)

	in := []float32{0.5, -0.25, 1.0, 0}
	_, err := s.Put(1, in)
	require.NoError(t, err)
	assert.Equal(t, float32(1.0), s.Scale()) // fitted from first vector

	out, ok := s.Vector(1)
	require.True(t, ok)
	for i := range in {
		assert.InDelta(t, in[i], out[i], 5e-3)
	}
}

func TestI8ScorerMatchesF32Metric(t *testing.T) {
	f := New(KindF32, 4, 4, 0)
	q := New(KindI8, 4, 4, 1.0)

	vecs := [][]float32{{1, 0, 0, 0}, {0.5, 0.5, 0, 0}, {0, 0, 0.25, 0.75}}
	for i, v := range vecs {
		f.Put(int64(i), v)
		q.Put(int64(i), v)
	}

	query := []float32{1, 0.25, 0, 0}
	for _, m := range []distance.Metric{distance.MetricCos, distance.MetricL2Sq, distance.MetricIP} {
		sf := f.Scorer(m, query)
		sq := q.Scorer(m, query)
		for slot := uint32(0); slot < 3; slot++ {
			// Both the stored vector and the query are quantized here, so
			// the budget is twice the single-sided 5e-3 tolerance.
			assert.InDelta(t, sf(slot), sq(slot), 1e-2, "metric=%v slot=%d", m, slot)
		}
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	s := New(KindF32, 2, 2, 0)
	slot, err := s.RestoreF32(42, 3, []float32{1, 2})
	require.NoError(t, err)

	assert.Equal(t, 3, s.TopLayer(slot))
	assert.Equal(t, int64(42), s.Key(slot))
	v, ok := s.Vector(42)
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2}, v)
}

func TestForEachLiveOrder(t *testing.T) {
	s := New(KindF32, 1, 4, 0)
	s.Put(10, []float32{0})
	s.Put(11, []float32{1})
	s.Put(12, []float32{2})
	s.Drop(11)

	var keys []int64
	s.ForEachLive(func(slot uint32) bool {
		keys = append(keys, s.Key(slot))
		return true
	})
	assert.Equal(t, []int64{10, 12}, keys)
}

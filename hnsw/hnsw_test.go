package hnsw

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pocketvec/pocketvec/distance"
	"github.com/pocketvec/pocketvec/internal/vectorstore"
)

func newTestGraph(t *testing.T, metric distance.Metric, dims int) *Graph {
	t.Helper()
	store := vectorstore.New(vectorstore.KindF32, dims, 16, 0)
	return New(store, func(o *Options) {
		o.Metric = metric
		o.RandomSeed = 42
	})
}

func TestInsertAndSearchCosine(t *testing.T) {
	g := newTestGraph(t, distance.MetricCos, 4)

	require.NoError(t, g.Insert(1, []float32{1, 0, 0, 0}))
	require.NoError(t, g.Insert(2, []float32{0, 1, 0, 0}))
	require.NoError(t, g.Insert(3, []float32{1, 1, 0, 0}))

	results := g.Search([]float32{1, 0, 0, 0}, 2, nil)
	require.Len(t, results, 2)
	assert.Equal(t, int64(1), results[0].Key)
	assert.InDelta(t, 0.0, results[0].Distance, 1e-6)
	assert.Equal(t, int64(3), results[1].Key)
	assert.InDelta(t, 0.29289, results[1].Distance, 1e-4)
}

func TestSearchTieBreaksOnKey(t *testing.T) {
	g := newTestGraph(t, distance.MetricL2Sq, 3)

	require.NoError(t, g.Insert(1, []float32{1, 0, 0}))
	require.NoError(t, g.Insert(2, []float32{0, 1, 0}))
	require.NoError(t, g.Insert(3, []float32{0, 0, 1}))

	results := g.Search([]float32{1, 0, 0}, 3, nil)
	require.Len(t, results, 3)
	assert.Equal(t, int64(1), results[0].Key)
	assert.Equal(t, float32(0), results[0].Distance)
	assert.Equal(t, int64(2), results[1].Key)
	assert.Equal(t, float32(2), results[1].Distance)
	assert.Equal(t, int64(3), results[2].Key)
	assert.Equal(t, float32(2), results[2].Distance)
}

func TestDuplicateInsert(t *testing.T) {
	g := newTestGraph(t, distance.MetricCos, 2)
	require.NoError(t, g.Insert(1, []float32{1, 0}))
	assert.ErrorIs(t, g.Insert(1, []float32{0, 1}), vectorstore.ErrDuplicateKey)
}

func TestEmptySearch(t *testing.T) {
	g := newTestGraph(t, distance.MetricCos, 2)
	assert.Empty(t, g.Search([]float32{1, 0}, 5, nil))
}

func TestKLargerThanCount(t *testing.T) {
	g := newTestGraph(t, distance.MetricL2Sq, 2)
	require.NoError(t, g.Insert(1, []float32{1, 0}))
	require.NoError(t, g.Insert(2, []float32{0, 1}))

	results := g.Search([]float32{1, 0}, 10, nil)
	assert.Len(t, results, 2)
}

func TestSelfQueryRecall(t *testing.T) {
	g := newTestGraph(t, distance.MetricL2Sq, 8)
	rng := rand.New(rand.NewSource(11))

	vectors := make(map[int64][]float32, 200)
	for i := int64(0); i < 200; i++ {
		v := make([]float32, 8)
		for j := range v {
			v[j] = rng.Float32()
		}
		vectors[i] = v
		require.NoError(t, g.Insert(i, v))
	}

	for key, v := range vectors {
		results := g.Search(v, 1, nil)
		require.Len(t, results, 1)
		assert.Equal(t, key, results[0].Key, "self-query for key %d", key)
		assert.InDelta(t, 0.0, results[0].Distance, 1e-6)
	}
}

func TestRecallAgainstBruteForce(t *testing.T) {
	g := newTestGraph(t, distance.MetricL2Sq, 16)
	rng := rand.New(rand.NewSource(5))

	const n = 500
	vecs := make([][]float32, n)
	for i := range vecs {
		v := make([]float32, 16)
		for j := range v {
			v[j] = rng.Float32()
		}
		vecs[i] = v
		require.NoError(t, g.Insert(int64(i), v))
	}

	const k = 10
	queries := 20
	var hits, total int
	for qi := 0; qi < queries; qi++ {
		q := make([]float32, 16)
		for j := range q {
			q[j] = rng.Float32()
		}

		type pair struct {
			key  int64
			dist float32
		}
		exact := make([]pair, n)
		for i, v := range vecs {
			exact[i] = pair{int64(i), distance.SquaredL2(q, v)}
		}
		sort.Slice(exact, func(i, j int) bool { return exact[i].dist < exact[j].dist })

		want := make(map[int64]bool, k)
		for _, p := range exact[:k] {
			want[p.key] = true
		}

		for _, r := range g.Search(q, k, nil) {
			if want[r.Key] {
				hits++
			}
		}
		total += k
	}

	recall := float64(hits) / float64(total)
	assert.Greater(t, recall, 0.9, "recall %f too low", recall)
}

func TestRemoveAndFiltering(t *testing.T) {
	g := newTestGraph(t, distance.MetricL2Sq, 2)

	require.NoError(t, g.Insert(1, []float32{0, 0}))
	require.NoError(t, g.Insert(2, []float32{1, 0}))
	require.NoError(t, g.Insert(3, []float32{2, 0}))

	require.NoError(t, g.Remove(2))

	results := g.Search([]float32{1, 0}, 3, nil)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.NotEqual(t, int64(2), r.Key)
	}
}

func TestRemoveMissingKey(t *testing.T) {
	g := newTestGraph(t, distance.MetricCos, 2)
	assert.ErrorIs(t, g.Remove(9), vectorstore.ErrKeyNotFound)
}

func TestRemoveEntryPointReelects(t *testing.T) {
	g := newTestGraph(t, distance.MetricL2Sq, 2)

	for i := int64(0); i < 50; i++ {
		require.NoError(t, g.Insert(i, []float32{float32(i), 0}))
	}

	epSlot, _, ok := g.EntryPoint()
	require.True(t, ok)
	epKey := g.store.Key(epSlot)

	require.NoError(t, g.Remove(epKey))

	newSlot, newLayer, ok := g.EntryPoint()
	require.True(t, ok)
	assert.True(t, g.store.Live(newSlot))

	// The new entry point is the highest-layer live node, smallest key first.
	bestLayer := -1
	bestKey := int64(0)
	g.store.ForEachLive(func(slot uint32) bool {
		if l := g.store.TopLayer(slot); l > bestLayer || (l == bestLayer && g.store.Key(slot) < bestKey) {
			bestLayer = l
			bestKey = g.store.Key(slot)
		}
		return true
	})
	assert.Equal(t, bestLayer, newLayer)
	assert.Equal(t, bestKey, g.store.Key(newSlot))

	// Searches still work after losing the entry point.
	results := g.Search([]float32{3, 0}, 5, nil)
	assert.NotEmpty(t, results)
}

func TestRemoveAll(t *testing.T) {
	g := newTestGraph(t, distance.MetricL2Sq, 2)
	require.NoError(t, g.Insert(1, []float32{1, 0}))
	require.NoError(t, g.Remove(1))

	_, _, ok := g.EntryPoint()
	assert.False(t, ok)
	assert.Empty(t, g.Search([]float32{1, 0}, 1, nil))

	// Reinsert works from the cleared state.
	require.NoError(t, g.Insert(2, []float32{0, 1}))
	results := g.Search([]float32{0, 1}, 1, nil)
	require.Len(t, results, 1)
	assert.Equal(t, int64(2), results[0].Key)
}

func TestUpdateSemantics(t *testing.T) {
	g := newTestGraph(t, distance.MetricCos, 4)

	require.NoError(t, g.Insert(1, []float32{1, 0, 0, 0}))
	require.NoError(t, g.Insert(2, []float32{0, 1, 0, 0}))
	require.NoError(t, g.Insert(3, []float32{1, 1, 0, 0}))

	require.NoError(t, g.Update(3, []float32{0, 0, 1, 0}))

	results := g.Search([]float32{1, 0, 0, 0}, 3, nil)
	require.Len(t, results, 3)
	assert.Equal(t, int64(1), results[0].Key)
	// Key 3 is now orthogonal to the query, farther than key 2.
	assert.Equal(t, int64(3), results[2].Key)

	// Update of an unknown key behaves as an add.
	require.NoError(t, g.Update(4, []float32{0, 0, 0, 1}))
	assert.Equal(t, 4, g.Store().Len())
}

func TestFilteredSearch(t *testing.T) {
	g := newTestGraph(t, distance.MetricL2Sq, 2)

	for i := int64(0); i < 100; i++ {
		require.NoError(t, g.Insert(i, []float32{float32(i % 10), float32(i / 10)}))
	}

	allowed := roaring64.New()
	allowed.Add(17)
	allowed.Add(71)

	results := g.Search([]float32{5, 5}, 10, allowed)
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.Contains(t, []int64{17, 71}, r.Key)
	}
}

func TestResultsStrictlyOrdered(t *testing.T) {
	g := newTestGraph(t, distance.MetricL2Sq, 4)
	rng := rand.New(rand.NewSource(99))

	for i := int64(0); i < 300; i++ {
		v := make([]float32, 4)
		for j := range v {
			v[j] = rng.Float32()
		}
		require.NoError(t, g.Insert(i, v))
	}

	results := g.Search([]float32{0.5, 0.5, 0.5, 0.5}, 20, nil)
	require.Len(t, results, 20)

	seen := make(map[int64]bool)
	for i, r := range results {
		assert.False(t, seen[r.Key], "duplicate key %d", r.Key)
		seen[r.Key] = true
		if i > 0 {
			assert.GreaterOrEqual(t, r.Distance, results[i-1].Distance)
		}
	}
}

func TestDeterministicLayout(t *testing.T) {
	build := func() *Graph {
		g := newTestGraph(t, distance.MetricL2Sq, 4)
		rng := rand.New(rand.NewSource(123))
		for i := int64(0); i < 100; i++ {
			v := make([]float32, 4)
			for j := range v {
				v[j] = rng.Float32()
			}
			require.NoError(t, g.Insert(i, v))
		}
		return g
	}

	a, b := build(), build()
	for slot := uint32(0); slot < a.store.NextSlot(); slot++ {
		assert.Equal(t, a.store.TopLayer(slot), b.store.TopLayer(slot), "slot %d", slot)
	}

	qa := a.Search([]float32{0.3, 0.3, 0.3, 0.3}, 5, nil)
	qb := b.Search([]float32{0.3, 0.3, 0.3, 0.3}, 5, nil)
	assert.Equal(t, fmt.Sprint(qa), fmt.Sprint(qb))
}

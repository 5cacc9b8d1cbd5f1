package hnsw

import (
	"math/rand"
	"testing"

	"github.com/pocketvec/pocketvec/distance"
	"github.com/pocketvec/pocketvec/internal/vectorstore"
)

func benchVectors(n, dims int) [][]float32 {
	rng := rand.New(rand.NewSource(1))
	vecs := make([][]float32, n)
	for i := range vecs {
		v := make([]float32, dims)
		for j := range v {
			v[j] = rng.Float32()
		}
		vecs[i] = v
	}
	return vecs
}

func BenchmarkInsert(b *testing.B) {
	const dims = 128
	vecs := benchVectors(10000, dims)

	store := vectorstore.New(vectorstore.KindF32, dims, len(vecs), 0)
	g := New(store, func(o *Options) { o.Metric = distance.MetricL2Sq })

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = g.Insert(int64(i), vecs[i%len(vecs)])
	}
}

func BenchmarkSearch(b *testing.B) {
	const dims = 128
	vecs := benchVectors(10000, dims)

	store := vectorstore.New(vectorstore.KindF32, dims, len(vecs), 0)
	g := New(store, func(o *Options) { o.Metric = distance.MetricL2Sq })
	for i, v := range vecs {
		if err := g.Insert(int64(i), v); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = g.Search(vecs[i%len(vecs)], 10, nil)
	}
}

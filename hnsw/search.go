package hnsw

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/pocketvec/pocketvec/internal/searcher"
)

// Search returns the k nearest live neighbors of query, ascending by
// distance, ties broken by smaller key. An optional allowed bitmap
// restricts the result set (but not the traversal) to the listed keys.
func (g *Graph) Search(query []float32, k int, allowed *roaring64.Bitmap) []Result {
	return g.SearchEF(query, k, g.opts.EFSearch, allowed)
}

// SearchEF is Search with an explicit beam width; the effective width is
// max(ef, k).
func (g *Graph) SearchEF(query []float32, k, ef int, allowed *roaring64.Bitmap) []Result {
	if k <= 0 || !g.hasEP || g.store.Len() == 0 {
		return nil
	}
	if ef < k {
		ef = k
	}

	dist := g.store.Scorer(g.opts.Metric, query)

	curr := searcher.Item{Slot: g.ep, Distance: dist(g.ep)}
	for l := g.maxLayer; l > 0; l-- {
		curr = g.greedyStep(dist, curr, l)
	}

	w := g.searchLayer0(dist, curr, ef, allowed)

	items := w.Items()
	results := make([]Result, 0, len(items))
	for _, it := range items {
		results = append(results, Result{Key: g.store.Key(it.Slot), Distance: it.Distance})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].Key < results[j].Key
	})
	if len(results) > k {
		results = results[:k]
	}
	return results
}

// searchLayer0 is the layer-0 beam search. Traversal ignores the allowed
// filter so graph connectivity is preserved; only result emission honors it.
func (g *Graph) searchLayer0(dist func(uint32) float32, entry searcher.Item, ef int, allowed *roaring64.Bitmap) *resultSet {
	g.visited.Reset()
	g.visited.Visit(entry.Slot)

	frontier := searcher.NewMin(ef)
	frontier.Push(entry)

	w := &resultSet{q: searcher.NewMax(ef), capacity: ef}
	if g.emittable(entry.Slot, allowed) {
		w.push(entry)
	}

	for frontier.Len() > 0 {
		c, _ := frontier.Pop()
		if worst, ok := w.worst(); ok && w.full() && c.Distance > worst {
			break
		}

		for _, n := range g.neighborsReadOnly(c.Slot, 0) {
			if g.visited.Seen(n) {
				continue
			}
			g.visited.Visit(n)

			it := searcher.Item{Slot: n, Distance: dist(n)}
			if worst, ok := w.worst(); !ok || !w.full() || it.Distance < worst {
				frontier.Push(it)
				if g.emittable(n, allowed) {
					w.push(it)
				}
			}
		}
	}
	return w
}

func (g *Graph) emittable(slot uint32, allowed *roaring64.Bitmap) bool {
	if !g.store.Live(slot) {
		return false
	}
	if allowed == nil {
		return true
	}
	return allowed.Contains(uint64(g.store.Key(slot)))
}

// neighborsReadOnly returns the adjacency list without tombstone pruning.
// Search paths use it so a query never mutates the graph; stale entries are
// skipped by liveness checks at emission.
func (g *Graph) neighborsReadOnly(slot uint32, layer int) []uint32 {
	if int(slot) >= len(g.conns) || len(g.conns[slot]) <= layer {
		return nil
	}
	return g.conns[slot][layer]
}

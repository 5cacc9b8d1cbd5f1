// Package hnsw implements the Hierarchical Navigable Small World graph used
// for approximate nearest-neighbor search.
//
// The graph stores adjacency per storage slot and layer; vectors live in a
// vectorstore.Store. The package performs no locking: the owning index
// serializes all calls (see the facade's concurrency controller).
package hnsw

import (
	"math"
	"math/rand"

	"github.com/pocketvec/pocketvec/distance"
	"github.com/pocketvec/pocketvec/internal/searcher"
	"github.com/pocketvec/pocketvec/internal/vectorstore"
)

const (
	// DefaultM is the default number of bidirectional links per layer above 0.
	DefaultM = 16

	// DefaultEFConstruction is the default construction-time beam width.
	DefaultEFConstruction = 64

	// DefaultEFSearch is the default search-time beam width.
	DefaultEFSearch = 64

	// minimumM avoids a zero layer multiplier (1/ln(1) is undefined).
	minimumM = 2

	// maxLayerAssignment bounds the geometric layer draw so layer numbers
	// always fit the snapshot's u8 field.
	maxLayerAssignment = 63

	// defaultSeed makes graphs reproducible unless a caller injects entropy.
	defaultSeed = 0x7f4a7c15
)

// Options configures a Graph.
type Options struct {
	// M is the maximum number of connections per element on layers above 0.
	// Layer 0 allows 2*M.
	M int

	// EFConstruction is the candidate beam width used while inserting.
	EFConstruction int

	// EFSearch is the default candidate beam width used while searching.
	EFSearch int

	// Metric selects the distance used for ranking.
	Metric distance.Metric

	// RandomSeed seeds the layer-assignment PRNG.
	RandomSeed int64
}

// DefaultOptions holds the defaults applied by New.
var DefaultOptions = Options{
	M:              DefaultM,
	EFConstruction: DefaultEFConstruction,
	EFSearch:       DefaultEFSearch,
	Metric:         distance.MetricCos,
	RandomSeed:     defaultSeed,
}

// Result is one search hit.
type Result struct {
	Key      int64
	Distance float32
}

// Graph is the multi-layer proximity graph. All methods must be externally
// serialized.
type Graph struct {
	store *vectorstore.Store
	opts  Options

	m, m0 int
	ml    float64
	rng   *rand.Rand

	// conns[slot][layer] lists the neighbor slots of slot at layer.
	conns [][][]uint32

	ep       uint32
	hasEP    bool
	maxLayer int

	visited *searcher.Visited
}

// New creates a graph over the given store.
func New(store *vectorstore.Store, optFns ...func(o *Options)) *Graph {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.M < minimumM {
		opts.M = minimumM
	}

	return &Graph{
		store:   store,
		opts:    opts,
		m:       opts.M,
		m0:      2 * opts.M,
		ml:      1 / math.Log(float64(opts.M)),
		rng:     rand.New(rand.NewSource(opts.RandomSeed)),
		visited: searcher.NewVisited(store.Capacity()),
	}
}

// Store returns the backing vector store.
func (g *Graph) Store() *vectorstore.Store { return g.store }

// Options returns the effective construction parameters.
func (g *Graph) Options() Options { return g.opts }

// EntryPoint returns the current entry slot and top layer.
func (g *Graph) EntryPoint() (slot uint32, layer int, ok bool) {
	return g.ep, g.maxLayer, g.hasEP
}

// maxConnections returns the neighbor bound for a layer.
func (g *Graph) maxConnections(layer int) int {
	if layer == 0 {
		return g.m0
	}
	return g.m
}

// randomLayer draws the top layer for a new node from the geometric
// distribution floor(-ln(U(0,1)) * mL).
func (g *Graph) randomLayer() int {
	u := 1 - g.rng.Float64() // (0, 1]
	layer := int(math.Floor(-math.Log(u) * g.ml))
	if layer > maxLayerAssignment {
		layer = maxLayerAssignment
	}
	return layer
}

// growConns extends the adjacency table to cover the store's slot range.
func (g *Graph) growConns() {
	for int(g.store.NextSlot()) > len(g.conns) {
		g.conns = append(g.conns, nil)
	}
}

// Insert adds key with vector vec to the graph. The vector is copied into
// the store; a live duplicate key fails with vectorstore.ErrDuplicateKey.
func (g *Graph) Insert(key int64, vec []float32) error {
	slot, err := g.store.Put(key, vec)
	if err != nil {
		return err
	}

	layer := g.randomLayer()
	g.store.SetTopLayer(slot, layer)
	g.growConns()
	g.conns[slot] = make([][]uint32, layer+1)

	if !g.hasEP {
		g.ep = slot
		g.maxLayer = layer
		g.hasEP = true
		return nil
	}

	dist := func(other uint32) float32 {
		return g.store.Between(g.opts.Metric, slot, other)
	}

	// Greedy descent through the layers above the insertion layer.
	curr := searcher.Item{Slot: g.ep, Distance: dist(g.ep)}
	for l := g.maxLayer; l > layer; l-- {
		curr = g.greedyStep(dist, curr, l)
	}

	// Beam search and link on every layer the new node participates in.
	for l := min(layer, g.maxLayer); l >= 0; l-- {
		w := g.searchLayer(dist, curr, g.opts.EFConstruction, l, slot)
		neighbors := g.selectNeighbors(w.Items(), g.maxConnections(l))

		g.conns[slot][l] = neighbors
		for _, n := range neighbors {
			g.link(n, slot, l)
		}

		if best, ok := w.MinOf(); ok {
			curr = best
		}
	}

	if layer > g.maxLayer {
		g.ep = slot
		g.maxLayer = layer
	}
	return nil
}

// link adds an edge from node to target at layer, re-pruning with the
// selection heuristic when the neighbor list overflows.
func (g *Graph) link(node, target uint32, layer int) {
	if len(g.conns[node]) <= layer {
		return
	}

	list := append(g.conns[node][layer], target)
	bound := g.maxConnections(layer)
	if len(list) <= bound {
		g.conns[node][layer] = list
		return
	}

	candidates := make([]searcher.Item, 0, len(list))
	for _, n := range list {
		if !g.store.Live(n) {
			continue
		}
		candidates = append(candidates, searcher.Item{
			Slot:     n,
			Distance: g.store.Between(g.opts.Metric, node, n),
		})
	}
	g.conns[node][layer] = g.selectNeighbors(candidates, bound)
}

// selectNeighbors applies the diversity heuristic: scanning candidates in
// increasing distance, a candidate is kept iff it is closer to the target
// than to every already-kept neighbor. Remaining capacity is filled with the
// nearest rejected candidates.
func (g *Graph) selectNeighbors(candidates []searcher.Item, bound int) []uint32 {
	ordered := searcher.NewMin(len(candidates))
	for _, c := range candidates {
		ordered.Push(c)
	}

	kept := make([]searcher.Item, 0, bound)
	var rejected []searcher.Item

	for ordered.Len() > 0 && len(kept) < bound {
		c, _ := ordered.Pop()

		diverse := true
		for _, k := range kept {
			if g.store.Between(g.opts.Metric, k.Slot, c.Slot) < c.Distance {
				diverse = false
				break
			}
		}
		if diverse {
			kept = append(kept, c)
		} else {
			rejected = append(rejected, c)
		}
	}

	for _, c := range rejected {
		if len(kept) >= bound {
			break
		}
		kept = append(kept, c)
	}

	out := make([]uint32, len(kept))
	for i, k := range kept {
		out[i] = k.Slot
	}
	return out
}

// greedyStep walks to the closest neighbor of curr at layer until no
// neighbor improves the distance.
func (g *Graph) greedyStep(dist func(uint32) float32, curr searcher.Item, layer int) searcher.Item {
	for {
		improved := false
		for _, n := range g.neighborsReadOnly(curr.Slot, layer) {
			if d := dist(n); d < curr.Distance {
				curr = searcher.Item{Slot: n, Distance: d}
				improved = true
			}
		}
		if !improved {
			return curr
		}
	}
}

// neighbors returns the adjacency list of slot at layer, pruning tombstoned
// entries in place as they are touched.
func (g *Graph) neighbors(slot uint32, layer int) []uint32 {
	if int(slot) >= len(g.conns) || len(g.conns[slot]) <= layer {
		return nil
	}

	list := g.conns[slot][layer]
	keep := list[:0]
	pruned := false
	for _, n := range list {
		if g.store.Live(n) {
			keep = append(keep, n)
		} else {
			pruned = true
		}
	}
	if pruned {
		g.conns[slot][layer] = keep
		return keep
	}
	return list
}

// searchLayer runs a beam search of width ef at the given layer starting
// from entry. The returned max-heap holds up to ef live candidates; exclude
// (if valid) is kept out of the result set so a node never links to itself.
func (g *Graph) searchLayer(dist func(uint32) float32, entry searcher.Item, ef, layer int, exclude uint32) *resultSet {
	g.visited.Reset()
	g.visited.Visit(entry.Slot)

	frontier := searcher.NewMin(ef)
	frontier.Push(entry)

	w := &resultSet{q: searcher.NewMax(ef), capacity: ef}
	if g.store.Live(entry.Slot) && entry.Slot != exclude {
		w.push(entry)
	}

	for frontier.Len() > 0 {
		c, _ := frontier.Pop()
		if worst, ok := w.worst(); ok && w.full() && c.Distance > worst {
			break
		}

		for _, n := range g.neighbors(c.Slot, layer) {
			if g.visited.Seen(n) {
				continue
			}
			g.visited.Visit(n)

			it := searcher.Item{Slot: n, Distance: dist(n)}
			if worst, ok := w.worst(); !ok || !w.full() || it.Distance < worst {
				frontier.Push(it)
				if g.store.Live(n) && n != exclude {
					w.push(it)
				}
			}
		}
	}
	return w
}

// resultSet is a bounded max-heap of the best candidates found so far.
type resultSet struct {
	q        *searcher.Queue
	capacity int
}

func (r *resultSet) push(it searcher.Item) {
	r.q.PushBounded(it, r.capacity)
}

func (r *resultSet) full() bool {
	return r.q.Len() >= r.capacity
}

func (r *resultSet) worst() (float32, bool) {
	top, ok := r.q.Top()
	if !ok {
		return 0, false
	}
	return top.Distance, true
}

// Items returns the collected candidates in heap order.
func (r *resultSet) Items() []searcher.Item {
	return r.q.Items()
}

// MinOf returns the closest collected candidate.
func (r *resultSet) MinOf() (searcher.Item, bool) {
	items := r.q.Items()
	if len(items) == 0 {
		return searcher.Item{}, false
	}
	best := items[0]
	for _, it := range items[1:] {
		if it.Distance < best.Distance {
			best = it
		}
	}
	return best, true
}

package hnsw

// Remove tombstones key's slot and detaches it from every neighbor list it
// is known to appear in. References from nodes that were not direct
// neighbors are cleaned up lazily when their lists are next touched.
func (g *Graph) Remove(key int64) error {
	slot, err := g.store.Drop(key)
	if err != nil {
		return err
	}

	if int(slot) < len(g.conns) {
		for layer, list := range g.conns[slot] {
			for _, n := range list {
				g.unlink(n, slot, layer)
			}
		}
		g.conns[slot] = nil
	}

	if g.hasEP && g.ep == slot {
		g.electEntryPoint()
	}
	return nil
}

// unlink removes target from node's adjacency list at layer.
func (g *Graph) unlink(node, target uint32, layer int) {
	if int(node) >= len(g.conns) || len(g.conns[node]) <= layer {
		return
	}
	list := g.conns[node][layer]
	for i, n := range list {
		if n == target {
			g.conns[node][layer] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// electEntryPoint scans the live slots for the highest-layer node, breaking
// ties toward the smallest key. An empty graph clears the entry point.
func (g *Graph) electEntryPoint() {
	bestLayer := -1
	var bestSlot uint32
	var bestKey int64

	g.store.ForEachLive(func(slot uint32) bool {
		layer := g.store.TopLayer(slot)
		key := g.store.Key(slot)
		if layer > bestLayer || (layer == bestLayer && key < bestKey) {
			bestLayer = layer
			bestSlot = slot
			bestKey = key
		}
		return true
	})

	if bestLayer < 0 {
		g.hasEP = false
		g.maxLayer = 0
		return
	}
	g.ep = bestSlot
	g.maxLayer = bestLayer
	g.hasEP = true
}

// Update replaces key's vector, treating an absent key as a plain add.
func (g *Graph) Update(key int64, vec []float32) error {
	if g.store.Contains(key) {
		if err := g.Remove(key); err != nil {
			return err
		}
	}
	return g.Insert(key, vec)
}

// Neighbors exposes the live adjacency of key's slot at layer. Used by the
// snapshot codec.
func (g *Graph) Neighbors(slot uint32, layer int) []uint32 {
	out := make([]uint32, 0)
	for _, n := range g.neighborsReadOnly(slot, layer) {
		if g.store.Live(n) {
			out = append(out, n)
		}
	}
	return out
}

// RestoreNode re-creates the adjacency lists of a slot from a snapshot.
func (g *Graph) RestoreNode(slot uint32, topLayer int, neighbors [][]uint32) {
	g.growConns()
	lists := make([][]uint32, topLayer+1)
	copy(lists, neighbors)
	g.conns[slot] = lists
}

// ElectEntryPoint re-derives the entry point from the live slots. Used when
// a snapshot carries no resolvable entry key.
func (g *Graph) ElectEntryPoint() {
	g.electEntryPoint()
}

// RestoreEntryPoint re-establishes the entry point from a snapshot.
func (g *Graph) RestoreEntryPoint(slot uint32, layer int) {
	g.ep = slot
	g.maxLayer = layer
	g.hasEP = true
}

// Package graph is the feature dependency graph: an edge A -> B means that
// declaring A makes B available. Nodes are feature and platform short names
// keyed case-insensitively.
package graph

import (
	"fmt"

	"fortio.org/safecast"

	"libertyls/internal/catalog"
)

type nodeID uint32

// Graph is built once per catalog and never mutated afterwards.
type Graph struct {
	nameToID map[string]nodeID
	idToName []string
	edges    [][]nodeID // edges[from] = []to, in insertion order
}

// Build creates one node per feature and platform and adds an edge from every
// feature to each name it enables, plus an edge from every platform to each
// of its member features.
func Build(cat *catalog.Catalog) *Graph {
	g := &Graph{nameToID: make(map[string]nodeID)}
	if cat == nil {
		return g
	}
	features := cat.Features()
	for _, f := range features {
		g.node(f.ShortName)
	}
	for _, p := range cat.AllPlatformNames() {
		g.node(p)
	}
	for _, f := range features {
		from := g.node(f.ShortName)
		for _, to := range f.Enables {
			g.addEdge(from, g.node(to))
		}
		for _, p := range f.Platforms {
			g.addEdge(g.node(p), from)
		}
	}
	return g
}

func (g *Graph) node(name string) nodeID {
	k := catalog.Key(name)
	if id, ok := g.nameToID[k]; ok {
		return id
	}
	n, err := safecast.Conv[uint32](len(g.idToName))
	if err != nil {
		panic(fmt.Errorf("graph: node count overflow: %w", err))
	}
	id := nodeID(n)
	g.nameToID[k] = id
	g.idToName = append(g.idToName, name)
	g.edges = append(g.edges, nil)
	return id
}

func (g *Graph) addEdge(from, to nodeID) {
	if from == to {
		return
	}
	for _, existing := range g.edges[from] {
		if existing == to {
			return
		}
	}
	g.edges[from] = append(g.edges[from], to)
}

// Len returns the node count.
func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.idToName)
}

// Reachable reports whether target can be reached from any name in from.
// Names missing from the graph are unreachable.
func (g *Graph) Reachable(from []string, target string) bool {
	return g.ReachableAny(from, []string{target})
}

// ReachableAny reports whether any of targets can be reached from from in a
// single breadth-first traversal.
func (g *Graph) ReachableAny(from, targets []string) bool {
	if g == nil || len(targets) == 0 {
		return false
	}
	want := make(map[nodeID]struct{}, len(targets))
	for _, t := range targets {
		if id, ok := g.nameToID[catalog.Key(t)]; ok {
			want[id] = struct{}{}
		}
	}
	if len(want) == 0 {
		return false
	}
	found := false
	g.walk(from, func(id nodeID) bool {
		if _, ok := want[id]; ok {
			found = true
			return false
		}
		return true
	})
	return found
}

// Closure returns every name reachable from from, the start names included,
// in breadth-first visit order.
func (g *Graph) Closure(from []string) []string {
	if g == nil {
		return nil
	}
	var out []string
	g.walk(from, func(id nodeID) bool {
		out = append(out, g.idToName[id])
		return true
	})
	return out
}

// walk visits nodes breadth-first until visit returns false.
func (g *Graph) walk(from []string, visit func(nodeID) bool) {
	seen := make([]bool, len(g.idToName))
	queue := make([]nodeID, 0, len(from))
	for _, name := range from {
		id, ok := g.nameToID[catalog.Key(name)]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		queue = append(queue, id)
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if !visit(id) {
			return
		}
		for _, next := range g.edges[id] {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
}

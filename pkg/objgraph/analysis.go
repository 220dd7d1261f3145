package objgraph

import (
	"errors"
	"fmt"
	"slices"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/graph/traverse"
)

var (
	// ErrUnknownEndpoint is returned by [Graph.Validate] when an edge refers
	// to a node that does not exist.
	ErrUnknownEndpoint = errors.New("edge references unknown node")

	// ErrDuplicateEdge is returned by [Graph.Validate] when two edges share
	// the same endpoints and label.
	ErrDuplicateEdge = errors.New("duplicate edge")

	// ErrUnreachable is returned by [Graph.Validate] when a node cannot be
	// reached from the root.
	ErrUnreachable = errors.New("node not reachable from root")
)

// directed projects the graph onto a gonum directed graph. Parallel edges
// collapse into one and self-loops are dropped; neither affects reachability
// or multi-node components.
func (g *Graph) directed() *simple.DirectedGraph {
	dg := simple.NewDirectedGraph()
	for _, n := range g.nodes {
		dg.AddNode(simple.Node(int64(n.ID)))
	}
	for _, e := range g.edges {
		from, to := int64(e.From), int64(e.To)
		if from == to || dg.HasEdgeFromTo(from, to) {
			continue
		}
		dg.SetEdge(dg.NewEdge(dg.Node(from), dg.Node(to)))
	}
	return dg
}

// Validate checks the structural invariants of a built graph: every edge
// connects known nodes, no edge is recorded twice, and every node is
// reachable from the root.
func (g *Graph) Validate() error {
	seen := make(map[Edge]struct{}, len(g.edges))
	for _, e := range g.edges {
		if !g.has(e.From) || !g.has(e.To) {
			return fmt.Errorf("%w: %d -> %d", ErrUnknownEndpoint, e.From, e.To)
		}
		if _, dup := seen[e]; dup {
			return fmt.Errorf("%w: %d -> %d [%s]", ErrDuplicateEdge, e.From, e.To, e.Label)
		}
		seen[e] = struct{}{}
	}
	if len(g.nodes) == 0 {
		return nil
	}

	dg := g.directed()
	var bf traverse.BreadthFirst
	bf.Walk(dg, dg.Node(int64(g.Root())), nil)
	for _, n := range g.nodes {
		if !bf.Visited(simple.Node(int64(n.ID))) {
			return fmt.Errorf("%w: %d (%s)", ErrUnreachable, n.ID, n.Label)
		}
	}
	return nil
}

// Cycles returns the reference cycles in the graph: every strongly connected
// component with more than one node, plus every node that references itself.
// Each cycle lists node ids in ascending order; cycles are ordered by their
// smallest id.
func (g *Graph) Cycles() [][]int {
	var cycles [][]int
	for _, scc := range topo.TarjanSCC(g.directed()) {
		if len(scc) < 2 {
			continue
		}
		ids := make([]int, len(scc))
		for i, n := range scc {
			ids[i] = int(n.ID())
		}
		slices.Sort(ids)
		cycles = append(cycles, ids)
	}

	selfLoops := make(map[int]bool)
	for _, e := range g.edges {
		if e.From == e.To && !selfLoops[e.From] {
			selfLoops[e.From] = true
			cycles = append(cycles, []int{e.From})
		}
	}

	slices.SortFunc(cycles, func(a, b []int) int { return a[0] - b[0] })
	return cycles
}

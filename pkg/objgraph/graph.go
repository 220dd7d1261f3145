package objgraph

import "slices"

// Kind classifies the entity a node stands for.
type Kind string

const (
	// KindPrimitive is a non-reference value: string, number, boolean,
	// undefined, null, symbol or bigint.
	KindPrimitive Kind = "primitive"
	// KindArray is an array created by user code.
	KindArray Kind = "array"
	// KindFunction is any callable object.
	KindFunction Kind = "function"
	// KindPlainObject is any other object created by user code.
	KindPlainObject Kind = "plain-object"
	// KindBuiltin is a non-callable object provided by the platform,
	// such as Object.prototype or Math.
	KindBuiltin Kind = "builtin-object"
	// KindError is the single node of a graph built from a failed evaluation.
	KindError Kind = "error"
)

// String returns the kind name.
func (k Kind) String() string { return string(k) }

// IsReference reports whether entities of this kind have identity.
func (k Kind) IsReference() bool {
	return k == KindArray || k == KindFunction || k == KindPlainObject || k == KindBuiltin
}

// Node is one distinct entity in the graph.
type Node struct {
	ID    int    `json:"id"`
	Kind  Kind   `json:"kind"`
	Label string `json:"label"`
}

// Edge is a named reference from one node to another.
type Edge struct {
	From  int    `json:"from"`
	To    int    `json:"to"`
	Label string `json:"label"`
}

// Graph holds the nodes reachable from a root entity and the edges between
// them, in the order they were discovered.
//
// Node ids are assigned sequentially starting at 1; the first node added is
// the root. Edges are unique by (From, To, Label).
//
// The zero value is not usable; use [New]. A Graph is not safe for concurrent
// mutation.
type Graph struct {
	nodes   []Node
	edges   []Edge
	edgeSet map[Edge]struct{}
	out     map[int][]int // node id -> indices into edges

	truncated bool
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		edgeSet: make(map[Edge]struct{}),
		out:     make(map[int][]int),
	}
}

// AddNode appends a node and returns its id.
func (g *Graph) AddNode(kind Kind, label string) int {
	id := len(g.nodes) + 1
	g.nodes = append(g.nodes, Node{ID: id, Kind: kind, Label: label})
	return id
}

// AddEdge records a reference from one node to another. It reports false,
// leaving the graph unchanged, if either endpoint is unknown or an identical
// edge already exists.
func (g *Graph) AddEdge(from, to int, label string) bool {
	if !g.has(from) || !g.has(to) {
		return false
	}
	e := Edge{From: from, To: to, Label: label}
	if _, dup := g.edgeSet[e]; dup {
		return false
	}
	g.edgeSet[e] = struct{}{}
	g.out[from] = append(g.out[from], len(g.edges))
	g.edges = append(g.edges, e)
	return true
}

func (g *Graph) has(id int) bool { return id >= 1 && id <= len(g.nodes) }

// Root returns the id of the root node, or 0 for an empty graph.
func (g *Graph) Root() int {
	if len(g.nodes) == 0 {
		return 0
	}
	return g.nodes[0].ID
}

// Node returns the node with the given id.
func (g *Graph) Node(id int) (Node, bool) {
	if !g.has(id) {
		return Node{}, false
	}
	return g.nodes[id-1], true
}

// Nodes returns all nodes in id order.
func (g *Graph) Nodes() []Node { return slices.Clone(g.nodes) }

// Edges returns all edges in insertion order.
func (g *Graph) Edges() []Edge { return slices.Clone(g.edges) }

// Outgoing returns the edges leaving id in insertion order.
func (g *Graph) Outgoing(id int) []Edge {
	idx := g.out[id]
	edges := make([]Edge, len(idx))
	for i, j := range idx {
		edges[i] = g.edges[j]
	}
	return edges
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// IsError reports whether the graph represents a failed evaluation.
func (g *Graph) IsError() bool {
	return len(g.nodes) == 1 && g.nodes[0].Kind == KindError
}

// Truncated reports whether the build stopped adding nodes because it hit
// its node limit.
func (g *Graph) Truncated() bool { return g.truncated }

// NodesOfKind returns the nodes of the given kind in id order.
func (g *Graph) NodesOfKind(k Kind) []Node {
	var out []Node
	for _, n := range g.nodes {
		if n.Kind == k {
			out = append(out, n)
		}
	}
	return out
}

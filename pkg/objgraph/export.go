package objgraph

// Document is the JSON form of a graph.
type Document struct {
	Root      int     `json:"root"`
	Nodes     []Node  `json:"nodes"`
	Edges     []Edge  `json:"edges"`
	Cycles    [][]int `json:"cycles,omitempty"`
	Truncated bool    `json:"truncated,omitempty"`
}

// Export returns a serializable snapshot of the graph.
func (g *Graph) Export() Document {
	nodes, edges := g.Nodes(), g.Edges()
	if nodes == nil {
		nodes = []Node{}
	}
	if edges == nil {
		edges = []Edge{}
	}
	return Document{
		Root:      g.Root(),
		Nodes:     nodes,
		Edges:     edges,
		Cycles:    g.Cycles(),
		Truncated: g.truncated,
	}
}

// Stats summarizes a graph.
type Stats struct {
	Nodes     int          `json:"nodes"`
	Edges     int          `json:"edges"`
	ByKind    map[Kind]int `json:"by_kind"`
	Cycles    int          `json:"cycles"`
	Truncated bool         `json:"truncated,omitempty"`
}

// Stats counts the graph's nodes, edges and cycles.
func (g *Graph) Stats() Stats {
	s := Stats{
		Nodes:     len(g.nodes),
		Edges:     len(g.edges),
		ByKind:    make(map[Kind]int),
		Cycles:    len(g.Cycles()),
		Truncated: g.truncated,
	}
	for _, n := range g.nodes {
		s.ByKind[n.Kind]++
	}
	return s
}

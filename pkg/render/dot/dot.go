package dot

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/matzehuels/objgraph/pkg/objgraph"
)

// Layout directions accepted by [Options.RankDir].
const (
	RankTB = "TB"
	RankLR = "LR"
	RankBT = "BT"
	RankRL = "RL"
)

// Options configures DOT generation.
type Options struct {
	// RankDir is the Graphviz layout direction. Empty means top to bottom.
	RankDir string
}

// ValidRankDir reports whether dir is a supported layout direction.
func ValidRankDir(dir string) bool {
	switch dir {
	case "", RankTB, RankLR, RankBT, RankRL:
		return true
	}
	return false
}

func (o Options) rankDir() string {
	if o.RankDir == "" || !ValidRankDir(o.RankDir) {
		return RankTB
	}
	return o.RankDir
}

// Serialize converts a graph to DOT source. The output is deterministic for a
// given graph and options.
func Serialize(g *objgraph.Graph, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	fmt.Fprintf(&buf, "  rankdir=%s;\n", opts.rankDir())
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontname=\"Helvetica\", fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [fontname=\"Helvetica\", fontsize=11, color=\"#555555\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	root := g.Root()
	for _, n := range g.Nodes() {
		fmt.Fprintf(&buf, "  %s [%s];\n", nodeID(n.ID), strings.Join(fmtAttrs(n, n.ID == root), ", "))
	}

	if g.EdgeCount() > 0 {
		buf.WriteString("\n")
	}
	for _, e := range g.Edges() {
		fmt.Fprintf(&buf, "  %s -> %s [label=%s];\n", nodeID(e.From), nodeID(e.To), quote(e.Label))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeID(id int) string { return fmt.Sprintf("n%d", id) }

func fmtAttrs(n objgraph.Node, root bool) []string {
	attrs := []string{"label=" + quote(n.Label)}
	attrs = append(attrs, kindStyles[n.Kind]...)
	if root {
		attrs = append(attrs, "peripheries=2")
	}
	return attrs
}

var kindStyles = map[objgraph.Kind][]string{
	objgraph.KindPrimitive:   {"shape=ellipse", `fillcolor="#f5f5f5"`},
	objgraph.KindArray:       {`fillcolor="#fff3c4"`},
	objgraph.KindFunction:    {`fillcolor="#d6eaff"`},
	objgraph.KindPlainObject: nil,
	objgraph.KindBuiltin:     {`style="rounded,filled,dashed"`, `fillcolor="#e8e8e8"`, "fontcolor=\"#444444\""},
	objgraph.KindError:       {"color=red", "fontcolor=red", `fillcolor="#ffe5e5"`},
}

// quote renders s as a DOT string literal. Backslashes, quotes and newlines are
// escaped; other control characters become spaces.
func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '\\':
			b.WriteString(`\\`)
		case r == '"':
			b.WriteString(`\"`)
		case r == '\n':
			b.WriteString(`\n`)
		case r < 0x20 || r == 0x7f:
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

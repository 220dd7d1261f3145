// Package dot serializes object graphs as Graphviz DOT and renders them.
//
// # Usage
//
//	src := dot.Serialize(g, dot.Options{})
//	svg, err := dot.RenderSVG(ctx, src)
//
// For PDF or PNG output:
//
//	pdf, err := dot.RenderPDF(ctx, src)
//	png, err := dot.RenderPNG(ctx, src, 2.0)
//
// An SVG already in hand converts with [ConvertSVG].
//
// # Output
//
// [Serialize] emits one node statement per node in id order followed by one
// edge statement per edge in insertion order, so equal graphs produce
// byte-identical text. Node identifiers are "n" followed by the node id;
// labels are escaped for DOT string literals.
//
// Nodes are styled by kind: primitives are grey ellipses, arrays yellow,
// functions blue, platform objects dashed grey and the error node red. The
// root has a double border.
//
// # Dependencies
//
// [RenderSVG] uses [github.com/goccy/go-graphviz] in-process. PDF and PNG
// conversion requires librsvg (rsvg-convert).
package dot

package pipeline

import (
	"context"
	"encoding/json"

	apperrors "github.com/matzehuels/objgraph/pkg/errors"
	"github.com/matzehuels/objgraph/pkg/objgraph"
	"github.com/matzehuels/objgraph/pkg/render/dot"
)

// renderer produces the output formats of one graph. Graphviz lays the graph
// out at most once: PNG and PDF are converted from the same SVG.
type renderer struct {
	g     *objgraph.Graph
	src   string
	scale float64
	svg   []byte
}

// RenderFormat produces one output format for a graph and its DOT source.
func RenderFormat(ctx context.Context, g *objgraph.Graph, src, format string, scale float64) ([]byte, error) {
	rr := &renderer{g: g, src: src, scale: scale}
	return rr.render(ctx, format)
}

func (rr *renderer) render(ctx context.Context, format string) ([]byte, error) {
	if err := ValidateFormat(format); err != nil {
		return nil, err
	}
	data, err := rr.produce(ctx, format)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeRender, err, "render %s", format)
	}
	return data, nil
}

func (rr *renderer) produce(ctx context.Context, format string) ([]byte, error) {
	switch format {
	case FormatDOT:
		return []byte(rr.src), nil
	case FormatJSON:
		return json.MarshalIndent(rr.g.Export(), "", "  ")
	}

	if rr.svg == nil {
		svg, err := dot.RenderSVG(ctx, rr.src)
		if err != nil {
			return nil, err
		}
		rr.svg = svg
	}
	if format == FormatSVG {
		return rr.svg, nil
	}
	return dot.ConvertSVG(ctx, rr.svg, format, rr.scale)
}

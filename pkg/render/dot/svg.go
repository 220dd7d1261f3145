package dot

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/goccy/go-graphviz"
)

// RenderSVG lays out DOT source with the bundled Graphviz and returns a
// standalone SVG document sized in pixels.
func RenderSVG(ctx context.Context, src string) ([]byte, error) {
	g, err := graphviz.ParseBytes([]byte(src))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	return standaloneSVG(buf.Bytes()), nil
}

// RenderPDF renders DOT source as PDF by converting its SVG.
func RenderPDF(ctx context.Context, src string) ([]byte, error) {
	svg, err := RenderSVG(ctx, src)
	if err != nil {
		return nil, err
	}
	return ConvertSVG(ctx, svg, "pdf", 0)
}

// RenderPNG renders DOT source as PNG by converting its SVG. A scale of 2.0
// doubles the resolution.
func RenderPNG(ctx context.Context, src string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(ctx, src)
	if err != nil {
		return nil, err
	}
	return ConvertSVG(ctx, svg, "png", scale)
}

var (
	// Everything up to and including the opening svg tag: the XML prolog,
	// doctype and the generator comments Graphviz writes.
	svgHeadRe = regexp.MustCompile(`(?s)^.*?<svg\b[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="[-0-9.]+\s+[-0-9.]+\s+([0-9.]+)\s+([0-9.]+)"`)
)

// standaloneSVG replaces the document head with a bare svg tag whose pixel
// size equals the viewBox, dropping the point units Graphviz uses.
func standaloneSVG(svg []byte) []byte {
	head := svgHeadRe.Find(svg)
	if head == nil {
		return svg
	}
	m := viewBoxRe.FindSubmatch(head)
	if m == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(m[1]), 64)
	h, _ := strconv.ParseFloat(string(m[2]), 64)
	if w <= 0 || h <= 0 {
		return svg
	}

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return append([]byte(tag), svg[len(head):]...)
}

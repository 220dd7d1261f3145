// Package pipeline provides the evaluate → build → render pipeline for objgraph.
//
// This package implements the complete pipeline used by the CLI, the HTTP
// playground, the terminal playground and watch mode. By centralizing this
// logic, every entry point produces the same graph and output for the same
// snippet and flags.
//
// # Architecture
//
// The pipeline consists of four stages:
//
//  1. Evaluate: Run the snippet in a fresh sandbox realm
//  2. Build: Walk the receiver's object graph
//  3. Serialize: Emit DOT source
//  4. Render: Produce the requested formats (DOT, JSON, SVG, PNG, PDF)
//
// A snippet that throws is not a pipeline failure: the result carries the
// single-node error graph and its DOT like any other graph. Errors returned by
// [Runner.Execute] describe invalid options or rendering failures.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Code:    "this.a = [1, 2]",
//	    Formats: []string{"svg"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"time"

	"github.com/matzehuels/objgraph/pkg/cache"
	apperrors "github.com/matzehuels/objgraph/pkg/errors"
	"github.com/matzehuels/objgraph/pkg/objgraph"
	"github.com/matzehuels/objgraph/pkg/render/dot"
	"github.com/matzehuels/objgraph/pkg/sandbox"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and server
// =============================================================================

const (
	// DefaultTimeout bounds a single evaluation.
	DefaultTimeout = 5 * time.Second

	// DefaultMaxNodes caps graph size. Platform objects alone contribute a
	// few hundred nodes when shown with all functions expanded.
	DefaultMaxNodes = 2000

	// DefaultScale is the PNG resolution multiplier.
	DefaultScale = 2.0

	// DefaultRankDir is the default Graphviz layout direction.
	DefaultRankDir = dot.RankTB
)

// Format constants for output formats.
const (
	FormatDOT  = "dot"
	FormatJSON = "json"
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatPDF  = "pdf"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatDOT:  true,
	FormatJSON: true,
	FormatSVG:  true,
	FormatPNG:  true,
	FormatPDF:  true,
}

// cachedFormats are the formats expensive enough to cache.
var cachedFormats = map[string]bool{
	FormatSVG: true,
	FormatPNG: true,
	FormatPDF: true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for one pipeline run.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Code is the snippet to evaluate.
	Code string `json:"code"`

	// Build options
	ShowBuiltins     bool `json:"show_builtins"`
	ShowAllFunctions bool `json:"show_all_functions"`
	MaxNodes         int  `json:"max_nodes,omitempty"`

	// Render options
	RankDir string   `json:"rankdir,omitempty"`
	Formats []string `json:"formats,omitempty"`
	Scale   float64  `json:"scale,omitempty"`

	// Refresh skips cache reads; fresh artifacts are still written.
	Refresh bool `json:"refresh,omitempty"`

	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Graph is the built object graph, or the error graph if evaluation failed.
	Graph *objgraph.Graph

	// EvalError is set when the snippet failed to evaluate.
	EvalError *sandbox.EvalError

	// DOT is the serialized graph.
	DOT string

	// DOTHash is the content hash of DOT, used for artifact cache keys.
	DOTHash string

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which artifacts came from the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount  int           `json:"nodes"`
	EdgeCount  int           `json:"edges"`
	Cycles     int           `json:"cycles"`
	Truncated  bool          `json:"truncated,omitempty"`
	EvalTime   time.Duration `json:"eval_ns"`
	BuildTime  time.Duration `json:"build_ns"`
	RenderTime time.Duration `json:"render_ns"`
}

// CacheInfo tracks cache hits for rendered artifacts.
type CacheInfo struct {
	RenderHit bool     `json:"render_hit"` // Whether all cacheable artifacts came from cache
	Hits      []string `json:"hits,omitempty"`
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return apperrors.New(apperrors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: dot, json, svg, png, pdf)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks the options and applies defaults.
// This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := apperrors.ValidateCode(o.Code); err != nil {
		return err
	}
	if err := apperrors.ValidateRankDir(o.RankDir); err != nil {
		return err
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatDOT}
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if o.MaxNodes < 0 {
		return apperrors.New(apperrors.ErrCodeInvalidInput, "max_nodes must not be negative")
	}
	if o.RankDir == "" {
		o.RankDir = DefaultRankDir
	}
	if o.Scale <= 0 {
		o.Scale = DefaultScale
	}
	o.validated = true
	return nil
}

// GraphOptions returns the builder options.
func (o *Options) GraphOptions() objgraph.Options {
	return objgraph.Options{
		ShowBuiltins:     o.ShowBuiltins,
		ShowAllFunctions: o.ShowAllFunctions,
		MaxNodes:         o.MaxNodes,
	}
}

// DOTOptions returns the serializer options.
func (o *Options) DOTOptions() dot.Options {
	return dot.Options{RankDir: o.RankDir}
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	opts := cache.ArtifactKeyOpts{Format: format}
	if format == FormatPNG {
		opts.Scale = o.Scale
	}
	return opts
}

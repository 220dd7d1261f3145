package pipeline

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/objgraph/pkg/cache"
	"github.com/matzehuels/objgraph/pkg/objgraph"
	"github.com/matzehuels/objgraph/pkg/observability"
	"github.com/matzehuels/objgraph/pkg/render/dot"
	"github.com/matzehuels/objgraph/pkg/sandbox"
)

// Runner encapsulates pipeline execution with caching.
//
// The Runner holds only configuration, the cache and the logger; it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache     cache.Cache
	Keyer     cache.Keyer
	Logger    *log.Logger
	Evaluator *sandbox.Evaluator

	// TTL is the lifetime of cached artifacts.
	TTL time.Duration
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a zero HashKeyer is used.
// If cache is nil, nothing is cached.
// evalOpts configure the sandbox; the runner's logger is always passed on.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger, evalOpts ...sandbox.Option) *Runner {
	if keyer == nil {
		keyer = cache.HashKeyer{}
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	evalOpts = append([]sandbox.Option{sandbox.WithLogger(logger)}, evalOpts...)
	return &Runner{
		Cache:     c,
		Keyer:     keyer,
		Logger:    logger,
		Evaluator: sandbox.New(evalOpts...),
		TTL:       cache.TTLArtifact,
	}
}

// Execute runs the complete evaluate → build → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	result := &Result{}

	// Stage 1: Evaluate
	evalStart := time.Now()
	res := r.Evaluate(ctx, opts.Code)
	result.Stats.EvalTime = time.Since(evalStart)
	result.EvalError = res.Err

	// Stage 2: Build
	buildStart := time.Now()
	g := r.Build(ctx, res, opts)
	result.Graph = g
	result.Stats.BuildTime = time.Since(buildStart)
	result.Stats.NodeCount = g.NodeCount()
	result.Stats.EdgeCount = g.EdgeCount()
	result.Stats.Cycles = len(g.Cycles())
	result.Stats.Truncated = g.Truncated()

	if res.Failed() {
		r.Logger.Info("evaluation failed", "error", res.Err)
	} else {
		r.Logger.Info("built graph",
			"nodes", g.NodeCount(),
			"edges", g.EdgeCount(),
			"duration", result.Stats.EvalTime+result.Stats.BuildTime)
	}
	if g.Truncated() {
		r.Logger.Warn("graph truncated", "max_nodes", opts.MaxNodes)
	}

	// Stage 3: Serialize
	result.DOT = dot.Serialize(g, opts.DOTOptions())
	result.DOTHash = cache.Hash([]byte(result.DOT))

	// Stage 4: Render
	renderStart := time.Now()
	artifacts, info, err := r.RenderWithCacheInfo(ctx, g, result.DOT, opts)
	if err != nil {
		return nil, err
	}
	result.Artifacts = artifacts
	result.CacheInfo = info
	result.Stats.RenderTime = time.Since(renderStart)

	r.Logger.Debug("rendered outputs",
		"formats", opts.Formats,
		"cached", info.Hits,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// Evaluate runs code in a fresh realm.
func (r *Runner) Evaluate(ctx context.Context, code string) *sandbox.Result {
	hooks := observability.Pipeline()
	hooks.OnEvaluateStart(ctx, len(code))

	start := time.Now()
	res := r.Evaluator.Evaluate(ctx, code)

	var errKind string
	if res.Failed() {
		errKind = res.Err.Name
	}
	hooks.OnEvaluateComplete(ctx, time.Since(start), errKind)
	return res
}

// Build turns an evaluation result into a graph.
func (r *Runner) Build(ctx context.Context, res *sandbox.Result, opts Options) *objgraph.Graph {
	start := time.Now()
	g := objgraph.NewBuilder(opts.GraphOptions(), objgraph.WithLogger(r.Logger)).BuildContext(ctx, res)
	observability.Pipeline().OnBuildComplete(ctx, g.NodeCount(), g.EdgeCount(), time.Since(start))
	return g
}

// RenderWithCacheInfo produces every requested format. SVG, PNG and PDF are
// looked up in the cache by the hash of the DOT source first.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, g *objgraph.Graph, src string, opts Options) (map[string][]byte, CacheInfo, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, CacheInfo{}, err
	}

	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, opts.Formats)
	start := time.Now()

	artifacts, info, err := r.render(ctx, g, src, opts)
	hooks.OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	return artifacts, info, err
}

func (r *Runner) render(ctx context.Context, g *objgraph.Graph, src string, opts Options) (map[string][]byte, CacheInfo, error) {
	dotHash := cache.Hash([]byte(src))
	cacheHooks := observability.Cache()

	rr := &renderer{g: g, src: src, scale: opts.Scale}
	artifacts := make(map[string][]byte, len(opts.Formats))
	var info CacheInfo
	cacheable, hits := 0, 0

	for _, format := range opts.Formats {
		if _, done := artifacts[format]; done {
			continue
		}
		if !cachedFormats[format] {
			data, err := rr.render(ctx, format)
			if err != nil {
				return nil, CacheInfo{}, err
			}
			artifacts[format] = data
			continue
		}

		cacheable++
		key := r.Keyer.ArtifactKey(dotHash, opts.ArtifactKeyOpts(format))
		if !opts.Refresh {
			data, hit, err := r.Cache.Get(ctx, key)
			if err != nil {
				r.Logger.Warn("cache read failed", "format", format, "error", err)
			}
			if err == nil && hit {
				cacheHooks.OnCacheHit(ctx, format)
				artifacts[format] = data
				if format == FormatSVG {
					rr.svg = data
				}
				info.Hits = append(info.Hits, format)
				hits++
				continue
			}
			cacheHooks.OnCacheMiss(ctx, format)
		}

		data, err := rr.render(ctx, format)
		if err != nil {
			return nil, CacheInfo{}, err
		}
		artifacts[format] = data

		if err := r.Cache.Set(ctx, key, data, r.TTL); err != nil {
			r.Logger.Warn("cache write failed", "format", format, "error", err)
		} else {
			cacheHooks.OnCacheSet(ctx, format, len(data))
		}
	}

	info.RenderHit = cacheable > 0 && hits == cacheable
	return artifacts, info, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

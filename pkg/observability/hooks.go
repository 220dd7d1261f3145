// Package observability lets objgraph report what it is doing without
// depending on a metrics backend.
//
// Libraries emit events through the registered hooks:
//
//	observability.Pipeline().OnEvaluateStart(ctx, len(code))
//	observability.Cache().OnCacheHit(ctx, "svg")
//
// Until something is installed every hook is [Noop]. `objgraph serve`
// installs [PrometheusHooks] and exposes them on /metrics:
//
//	observability.Install(observability.NewPrometheusHooks(reg))
package observability

import (
	"context"
	"sync/atomic"
	"time"
)

// PipelineHooks receives events from the evaluate, build and render stages.
type PipelineHooks interface {
	// errKind is the thrown error's name, such as "ReferenceError", or empty
	// on success.
	OnEvaluateStart(ctx context.Context, codeBytes int)
	OnEvaluateComplete(ctx context.Context, d time.Duration, errKind string)

	OnBuildComplete(ctx context.Context, nodes, edges int, d time.Duration)

	OnRenderStart(ctx context.Context, formats []string)
	OnRenderComplete(ctx context.Context, formats []string, d time.Duration, err error)
}

// CacheHooks receives artifact cache events keyed by output format.
type CacheHooks interface {
	OnCacheHit(ctx context.Context, format string)
	OnCacheMiss(ctx context.Context, format string)
	OnCacheSet(ctx context.Context, format string, size int)
}

// HTTPHooks receives playground request events. OnRequest runs before
// routing, so its route is the raw path.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, route string)
	OnResponse(ctx context.Context, method, route string, status int, d time.Duration)
}

// Hooks implements every hook kind.
type Hooks interface {
	PipelineHooks
	CacheHooks
	HTTPHooks
}

// Noop ignores every event.
type Noop struct{}

func (Noop) OnEvaluateStart(context.Context, int)                             {}
func (Noop) OnEvaluateComplete(context.Context, time.Duration, string)        {}
func (Noop) OnBuildComplete(context.Context, int, int, time.Duration)         {}
func (Noop) OnRenderStart(context.Context, []string)                          {}
func (Noop) OnRenderComplete(context.Context, []string, time.Duration, error) {}
func (Noop) OnCacheHit(context.Context, string)                               {}
func (Noop) OnCacheMiss(context.Context, string)                              {}
func (Noop) OnCacheSet(context.Context, string, int)                          {}
func (Noop) OnRequest(context.Context, string, string)                        {}
func (Noop) OnResponse(context.Context, string, string, int, time.Duration)   {}

type registry struct {
	pipeline PipelineHooks
	cache    CacheHooks
	http     HTTPHooks
}

var current atomic.Pointer[registry]

func init() { Reset() }

// update swaps in a modified copy of the registry so readers never lock.
func update(fn func(*registry)) {
	for {
		old := current.Load()
		next := *old
		fn(&next)
		if current.CompareAndSwap(old, &next) {
			return
		}
	}
}

// SetPipelineHooks registers h for pipeline events. A nil h is ignored.
func SetPipelineHooks(h PipelineHooks) {
	if h != nil {
		update(func(r *registry) { r.pipeline = h })
	}
}

// SetCacheHooks registers h for cache events. A nil h is ignored.
func SetCacheHooks(h CacheHooks) {
	if h != nil {
		update(func(r *registry) { r.cache = h })
	}
}

// SetHTTPHooks registers h for HTTP events. A nil h is ignored.
func SetHTTPHooks(h HTTPHooks) {
	if h != nil {
		update(func(r *registry) { r.http = h })
	}
}

// Install registers h for every event kind.
func Install(h Hooks) {
	if h != nil {
		current.Store(&registry{pipeline: h, cache: h, http: h})
	}
}

func Pipeline() PipelineHooks { return current.Load().pipeline }
func Cache() CacheHooks       { return current.Load().cache }
func HTTP() HTTPHooks         { return current.Load().http }

// Reset restores the no-op hooks.
func Reset() {
	current.Store(&registry{pipeline: Noop{}, cache: Noop{}, http: Noop{}})
}

package observability

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNoopDoesNotPanic(t *testing.T) {
	ctx := context.Background()
	var h Hooks = Noop{}

	h.OnEvaluateStart(ctx, 42)
	h.OnEvaluateComplete(ctx, time.Millisecond, "ReferenceError")
	h.OnBuildComplete(ctx, 10, 9, time.Millisecond)
	h.OnRenderStart(ctx, []string{"svg"})
	h.OnRenderComplete(ctx, []string{"svg"}, time.Second, nil)
	h.OnCacheHit(ctx, "svg")
	h.OnCacheMiss(ctx, "png")
	h.OnCacheSet(ctx, "pdf", 1024)
	h.OnRequest(ctx, "POST", "/api/evaluate")
	h.OnResponse(ctx, "POST", "/api/evaluate", 200, time.Second)
}

func TestRegistry(t *testing.T) {
	t.Cleanup(Reset)
	Reset()

	if Pipeline() != PipelineHooks(Noop{}) || Cache() != CacheHooks(Noop{}) || HTTP() != HTTPHooks(Noop{}) {
		t.Fatal("hooks should default to Noop")
	}

	p, c, h := &testPipelineHooks{}, &testCacheHooks{}, &testHTTPHooks{}
	SetPipelineHooks(p)
	SetCacheHooks(c)
	SetHTTPHooks(h)
	if Pipeline() != PipelineHooks(p) || Cache() != CacheHooks(c) || HTTP() != HTTPHooks(h) {
		t.Error("Set*Hooks should register the given hooks")
	}

	// nil is ignored and leaves the others untouched.
	SetPipelineHooks(nil)
	if Pipeline() != PipelineHooks(p) {
		t.Error("SetPipelineHooks(nil) replaced the hooks")
	}

	Reset()
	if _, ok := Pipeline().(Noop); !ok {
		t.Error("Reset should restore Noop")
	}
}

func TestRegistryConcurrentUpdates(t *testing.T) {
	t.Cleanup(Reset)
	Reset()

	p, c := &testPipelineHooks{}, &testCacheHooks{}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); SetPipelineHooks(p) }()
		go func() { defer wg.Done(); SetCacheHooks(c) }()
	}
	wg.Wait()

	if Pipeline() != PipelineHooks(p) || Cache() != CacheHooks(c) {
		t.Error("concurrent updates lost a registration")
	}
}

func TestPrometheusHooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := NewPrometheusHooks(reg)
	ctx := context.Background()

	h.OnEvaluateStart(ctx, 10)
	h.OnEvaluateComplete(ctx, time.Millisecond, "")
	h.OnEvaluateComplete(ctx, time.Millisecond, "ReferenceError")
	h.OnBuildComplete(ctx, 3, 2, time.Millisecond)
	h.OnRenderComplete(ctx, []string{"dot", "svg"}, time.Millisecond, nil)
	h.OnRenderComplete(ctx, []string{"png"}, time.Millisecond, errors.New("no rsvg"))
	h.OnCacheMiss(ctx, "svg")
	h.OnCacheSet(ctx, "svg", 100)
	h.OnCacheHit(ctx, "svg")
	h.OnRequest(ctx, "GET", "/healthz")
	h.OnResponse(ctx, "GET", "/healthz", 200, time.Millisecond)

	if got := testutil.ToFloat64(h.evaluations.WithLabelValues("ok")); got != 1 {
		t.Errorf("ok evaluations = %v, want 1", got)
	}
	if got := testutil.ToFloat64(h.evaluations.WithLabelValues("ReferenceError")); got != 1 {
		t.Errorf("ReferenceError evaluations = %v, want 1", got)
	}
	if got := testutil.ToFloat64(h.renders.WithLabelValues("png", "error")); got != 1 {
		t.Errorf("failed png renders = %v, want 1", got)
	}
	if got := testutil.ToFloat64(h.cacheBytes); got != 100 {
		t.Errorf("cache bytes = %v, want 100", got)
	}
	if got := testutil.ToFloat64(h.httpInFlight); got != 0 {
		t.Errorf("in flight = %v, want 0", got)
	}

	expected := `
# HELP objgraph_http_requests_total HTTP requests by method, route and status
# TYPE objgraph_http_requests_total counter
objgraph_http_requests_total{method="GET",route="/healthz",status="200"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "objgraph_http_requests_total"); err != nil {
		t.Error(err)
	}
}

func TestPrometheusHooksInstall(t *testing.T) {
	defer Reset()
	h := NewPrometheusHooks(prometheus.NewRegistry())
	Install(h)

	if Pipeline() != PipelineHooks(h) || Cache() != CacheHooks(h) || HTTP() != HTTPHooks(h) {
		t.Error("Install should register all hook kinds")
	}
}

type testPipelineHooks struct {
	Noop
	_ int
}
type testCacheHooks struct {
	Noop
	_ int
}
type testHTTPHooks struct {
	Noop
	_ int
}

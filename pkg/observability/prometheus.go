package observability

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var durationBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

// PrometheusHooks implements every hook interface by updating Prometheus
// collectors.
type PrometheusHooks struct {
	evaluations    *prometheus.CounterVec
	evalDuration   prometheus.Histogram
	codeBytes      prometheus.Histogram
	graphNodes     prometheus.Histogram
	graphEdges     prometheus.Histogram
	buildDuration  prometheus.Histogram
	renders        *prometheus.CounterVec
	renderDuration *prometheus.HistogramVec
	cacheOps       *prometheus.CounterVec
	cacheBytes     prometheus.Counter
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	httpInFlight   prometheus.Gauge
}

// NewPrometheusHooks creates the collectors and registers them with reg.
func NewPrometheusHooks(reg prometheus.Registerer) *PrometheusHooks {
	f := promauto.With(reg)
	return &PrometheusHooks{
		evaluations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "objgraph_evaluations_total",
			Help: "Snippet evaluations by outcome (ok or the JavaScript error name)",
		}, []string{"outcome"}),
		evalDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "objgraph_evaluation_duration_seconds",
			Help:    "Time to evaluate a snippet",
			Buckets: durationBuckets,
		}),
		codeBytes: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "objgraph_code_bytes",
			Help:    "Size of evaluated snippets",
			Buckets: prometheus.ExponentialBuckets(16, 4, 7),
		}),
		graphNodes: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "objgraph_graph_nodes",
			Help:    "Nodes per built graph",
			Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000},
		}),
		graphEdges: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "objgraph_graph_edges",
			Help:    "Edges per built graph",
			Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000},
		}),
		buildDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "objgraph_build_duration_seconds",
			Help:    "Time to build a graph from an evaluation result",
			Buckets: durationBuckets,
		}),
		renders: f.NewCounterVec(prometheus.CounterOpts{
			Name: "objgraph_renders_total",
			Help: "Render passes by requested formats and outcome",
		}, []string{"formats", "outcome"}),
		renderDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "objgraph_render_duration_seconds",
			Help:    "Time to render all requested formats",
			Buckets: durationBuckets,
		}, []string{"formats"}),
		cacheOps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "objgraph_cache_operations_total",
			Help: "Artifact cache operations by format and result",
		}, []string{"format", "result"}),
		cacheBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "objgraph_cache_written_bytes_total",
			Help: "Bytes written to the artifact cache",
		}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "objgraph_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "objgraph_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: durationBuckets,
		}, []string{"method", "route"}),
		httpInFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "objgraph_http_requests_in_flight",
			Help: "HTTP requests currently being served",
		}),
	}
}


func (h *PrometheusHooks) OnEvaluateStart(_ context.Context, codeBytes int) {
	h.codeBytes.Observe(float64(codeBytes))
}

func (h *PrometheusHooks) OnEvaluateComplete(_ context.Context, d time.Duration, errKind string) {
	outcome := errKind
	if outcome == "" {
		outcome = "ok"
	}
	h.evaluations.WithLabelValues(outcome).Inc()
	h.evalDuration.Observe(d.Seconds())
}

func (h *PrometheusHooks) OnBuildComplete(_ context.Context, nodes, edges int, d time.Duration) {
	h.graphNodes.Observe(float64(nodes))
	h.graphEdges.Observe(float64(edges))
	h.buildDuration.Observe(d.Seconds())
}

func (h *PrometheusHooks) OnRenderStart(context.Context, []string) {}

func (h *PrometheusHooks) OnRenderComplete(_ context.Context, formats []string, d time.Duration, err error) {
	label := strings.Join(formats, ",")
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	h.renders.WithLabelValues(label, outcome).Inc()
	h.renderDuration.WithLabelValues(label).Observe(d.Seconds())
}

func (h *PrometheusHooks) OnCacheHit(_ context.Context, format string) {
	h.cacheOps.WithLabelValues(format, "hit").Inc()
}

func (h *PrometheusHooks) OnCacheMiss(_ context.Context, format string) {
	h.cacheOps.WithLabelValues(format, "miss").Inc()
}

func (h *PrometheusHooks) OnCacheSet(_ context.Context, format string, size int) {
	h.cacheOps.WithLabelValues(format, "set").Inc()
	h.cacheBytes.Add(float64(size))
}

func (h *PrometheusHooks) OnRequest(context.Context, string, string) {
	h.httpInFlight.Inc()
}

func (h *PrometheusHooks) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	h.httpInFlight.Dec()
	h.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	h.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

var (
	_ PipelineHooks = (*PrometheusHooks)(nil)
	_ CacheHooks    = (*PrometheusHooks)(nil)
	_ HTTPHooks     = (*PrometheusHooks)(nil)
)

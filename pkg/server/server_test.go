package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/objgraph/pkg/objgraph"
	"github.com/matzehuels/objgraph/pkg/observability"
	"github.com/matzehuels/objgraph/pkg/pipeline"
	"github.com/matzehuels/objgraph/pkg/snippet"
)

func newTestServer(t *testing.T, mutate ...func(*Config)) *Server {
	t.Helper()
	logger := log.NewWithOptions(io.Discard, log.Options{})
	cfg := Config{
		Runner: pipeline.NewRunner(nil, nil, logger),
		Store:  snippet.NewMemoryStore(),
		Logger: logger,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	s, err := New(cfg)
	require.NoError(t, err)
	return s
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			r = strings.NewReader(b)
		default:
			data, err := json.Marshal(b)
			require.NoError(t, err)
			r = bytes.NewReader(data)
		}
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func labels(doc objgraph.Document) []string {
	out := make([]string, len(doc.Nodes))
	for i, n := range doc.Nodes {
		out[i] = n.Label
	}
	return out
}

func edgeLabels(doc objgraph.Document) []string {
	out := make([]string, len(doc.Edges))
	for i, e := range doc.Edges {
		out[i] = e.Label
	}
	return out
}

func TestNewRequiresRunner(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/healthz", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[healthResponse](t, rec)
	assert.Equal(t, "ok", body.Status)
	assert.NotEmpty(t, body.Build.Version)

	_, err := uuid.Parse(rec.Header().Get(RequestIDHeader))
	assert.NoError(t, err, "response should carry a request id")
}

func TestRequestIDEcho(t *testing.T) {
	s := newTestServer(t)
	id := uuid.NewString()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, id)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, id, rec.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "not\na-uuid")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.NotEqual(t, "not\na-uuid", rec.Header().Get(RequestIDHeader))
}

func TestIndex(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "objgraph playground")
}

func TestEvaluate(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/api/evaluate", evaluateRequest{
		Code:    "this.a = []",
		Formats: []string{"dot"},
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody[evaluateResponse](t, rec)
	assert.Nil(t, body.Error)
	assert.Equal(t, []string{"Object", "Array[0]"}, labels(body.Graph))
	assert.Equal(t, []string{"a"}, edgeLabels(body.Graph))
	assert.True(t, strings.HasPrefix(body.DOT, "digraph G {"))
	assert.Empty(t, body.SVG)
	assert.Equal(t, 2, body.Stats.NodeCount)
}

func TestEvaluateFlags(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/evaluate", evaluateRequest{
		Code:         "this.a = []",
		ShowBuiltins: true,
		Formats:      []string{"dot"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, labels(decodeBody[evaluateResponse](t, rec).Graph), "Array()")

	rec = do(t, s, http.MethodPost, "/api/evaluate", evaluateRequest{
		Code:    "this.a = function a() {}",
		Formats: []string{"dot"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, edgeLabels(decodeBody[evaluateResponse](t, rec).Graph), "constructor")

	rec = do(t, s, http.MethodPost, "/api/evaluate", evaluateRequest{
		Code:             "this.a = function a() {}",
		ShowAllFunctions: true,
		Formats:          []string{"dot"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, edgeLabels(decodeBody[evaluateResponse](t, rec).Graph), "constructor")
}

func TestEvaluateSnippetError(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/api/evaluate", evaluateRequest{
		Code:    "asdf",
		Formats: []string{"dot"},
	})

	require.Equal(t, http.StatusOK, rec.Code, "a throwing snippet is not a request error")
	body := decodeBody[evaluateResponse](t, rec)
	require.NotNil(t, body.Error)
	assert.Equal(t, "ReferenceError", body.Error.Name)
	require.Len(t, body.Graph.Nodes, 1)
	assert.Equal(t, objgraph.KindError, body.Graph.Nodes[0].Kind)
	assert.Contains(t, body.DOT, "ReferenceError")
}

func TestEvaluateSVG(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/api/evaluate", evaluateRequest{Code: "this.a = 1"})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody[evaluateResponse](t, rec)
	assert.Contains(t, body.SVG, "<svg")
	assert.NotEmpty(t, body.DOT)
}

func TestEvaluateBadRequests(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"malformed json", "{", http.StatusBadRequest, "INVALID_INPUT"},
		{"unknown field", `{"code":"","nope":1}`, http.StatusBadRequest, "INVALID_INPUT"},
		{"bad format", evaluateRequest{Formats: []string{"gif"}}, http.StatusBadRequest, "INVALID_FORMAT"},
		{"bad rankdir", evaluateRequest{RankDir: "up"}, http.StatusBadRequest, "INVALID_RANKDIR"},
		{"oversized code", evaluateRequest{Code: strings.Repeat("x", 65<<10)}, http.StatusBadRequest, "INVALID_CODE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/evaluate", tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			body := decodeBody[errorBody](t, rec)
			assert.Equal(t, tt.code, body.Code)
			assert.NotEmpty(t, body.RequestID)
		})
	}
}

func TestEvaluateContentType(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/evaluate", strings.NewReader(`{"code":""}`))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestSamples(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/samples", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[samplesResponse](t, rec)
	require.NotEmpty(t, list.Samples)
	assert.NotEmpty(t, list.Default)

	name := list.Samples[0].Name
	rec = do(t, s, http.MethodGet, "/api/samples/"+name, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"`+name+`"`)

	rec = do(t, s, http.MethodGet, "/api/samples/nope", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "SAMPLE_NOT_FOUND", decodeBody[errorBody](t, rec).Code)
}

func TestSnippetsCRUD(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/snippets", createSnippetRequest{
		Name:         "cycle",
		Code:         "this.self = this",
		ShowBuiltins: true,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[snippet.Snippet](t, rec)
	assert.Equal(t, "cycle", created.Name)
	assert.True(t, created.ShowBuiltins)
	_, err := uuid.Parse(created.ID)
	require.NoError(t, err)

	rec = do(t, s, http.MethodGet, "/api/snippets/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "this.self = this", decodeBody[snippet.Snippet](t, rec).Code)

	rec = do(t, s, http.MethodGet, "/api/snippets", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]snippet.Snippet](t, rec), 1)

	rec = do(t, s, http.MethodDelete, "/api/snippets/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/snippets/"+created.ID, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "SNIPPET_NOT_FOUND", decodeBody[errorBody](t, rec).Code)

	rec = do(t, s, http.MethodDelete, "/api/snippets/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSnippetValidation(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/snippets", createSnippetRequest{Name: "  ", Code: ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_SNIPPET", decodeBody[errorBody](t, rec).Code)

	rec = do(t, s, http.MethodPost, "/api/snippets", createSnippetRequest{Name: "x", Code: "a\x00"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_CODE", decodeBody[errorBody](t, rec).Code)

	rec = do(t, s, http.MethodGet, "/api/snippets/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	observability.Install(observability.NewPrometheusHooks(reg))
	t.Cleanup(observability.Reset)

	s := newTestServer(t, func(c *Config) { c.Gatherer = reg })

	do(t, s, http.MethodGet, "/healthz", nil)
	do(t, s, http.MethodPost, "/api/evaluate", evaluateRequest{Code: "this.a = 1", Formats: []string{"dot"}})

	rec := do(t, s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `objgraph_http_requests_total{method="GET",route="/healthz",status="200"} 1`)
	assert.Contains(t, body, `objgraph_evaluations_total{outcome="ok"} 1`)
}

func TestMetricsDisabled(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeShutdown(t *testing.T) {
	s := newTestServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

// Package server implements the HTTP playground.
//
// The playground is a single embedded page plus a small JSON API:
//
//	GET    /                      the playground page
//	POST   /api/evaluate          evaluate a snippet and return its graph
//	GET    /api/samples           list the sample catalog
//	GET    /api/samples/{name}    one sample
//	POST   /api/snippets          save a snippet
//	GET    /api/snippets          list saved snippets
//	GET    /api/snippets/{id}     one saved snippet
//	DELETE /api/snippets/{id}     delete a saved snippet
//	GET    /healthz               liveness and build info
//	GET    /metrics               Prometheus metrics, when a gatherer is set
//
// Every request is evaluated in a fresh realm; the server keeps no graph state.
package server

import (
	"context"
	"embed"
	"errors"
	"io"
	"io/fs"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/objgraph/pkg/pipeline"
	"github.com/matzehuels/objgraph/pkg/samples"
	"github.com/matzehuels/objgraph/pkg/snippet"
)

//go:embed static
var staticFiles embed.FS

const (
	// DefaultAddr is the listen address used when none is configured.
	DefaultAddr = "127.0.0.1:8080"

	// maxBodyBytes bounds request bodies. Snippets are limited separately.
	maxBodyBytes = 256 << 10

	shutdownTimeout = 10 * time.Second
)

// Config configures a Server.
type Config struct {
	// Runner executes evaluations. Required.
	Runner *pipeline.Runner

	// Store persists saved snippets. Defaults to a MemoryStore.
	Store snippet.Store

	// Samples is the catalog served under /api/samples. Defaults to the
	// built-in catalog.
	Samples *samples.Catalog

	// Defaults supplies the build options used when a request omits them.
	Defaults pipeline.Options

	// Gatherer enables /metrics when set.
	Gatherer prometheus.Gatherer

	Logger *log.Logger
}

// Server is the playground HTTP server.
type Server struct {
	runner   *pipeline.Runner
	store    snippet.Store
	samples  *samples.Catalog
	defaults pipeline.Options
	logger   *log.Logger
	router   chi.Router
}

// New creates a server and its routes.
func New(cfg Config) (*Server, error) {
	if cfg.Runner == nil {
		return nil, errors.New("server: runner is required")
	}
	if cfg.Store == nil {
		cfg.Store = snippet.NewMemoryStore()
	}
	if cfg.Samples == nil {
		cfg.Samples = samples.Builtin()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	s := &Server{
		runner:   cfg.Runner,
		store:    cfg.Store,
		samples:  cfg.Samples,
		defaults: cfg.Defaults,
		logger:   cfg.Logger,
	}
	if err := s.routes(cfg.Gatherer); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) routes(gatherer prometheus.Gatherer) error {
	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(observe)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.AllowContentType("application/json"))
		r.Post("/evaluate", s.handleEvaluate)

		r.Get("/samples", s.handleListSamples)
		r.Get("/samples/{name}", s.handleGetSample)

		r.Post("/snippets", s.handleCreateSnippet)
		r.Get("/snippets", s.handleListSnippets)
		r.Get("/snippets/{id}", s.handleGetSnippet)
		r.Delete("/snippets/{id}", s.handleDeleteSnippet)
	})

	r.Handle("/*", http.FileServer(http.FS(static)))

	s.router = r
	return nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.logger.Info("playground listening", "addr", "http://"+ln.Addr().String())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

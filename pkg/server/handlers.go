package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/objgraph/pkg/buildinfo"
	apperrors "github.com/matzehuels/objgraph/pkg/errors"
	"github.com/matzehuels/objgraph/pkg/objgraph"
	"github.com/matzehuels/objgraph/pkg/pipeline"
	"github.com/matzehuels/objgraph/pkg/samples"
	"github.com/matzehuels/objgraph/pkg/sandbox"
	"github.com/matzehuels/objgraph/pkg/snippet"
)

type evaluateRequest struct {
	Code             string   `json:"code"`
	ShowBuiltins     bool     `json:"show_builtins"`
	ShowAllFunctions bool     `json:"show_all_functions"`
	RankDir          string   `json:"rankdir,omitempty"`
	Formats          []string `json:"formats,omitempty"`
}

type evaluateResponse struct {
	DOT    string             `json:"dot"`
	SVG    string             `json:"svg,omitempty"`
	Graph  objgraph.Document  `json:"graph"`
	Error  *sandbox.EvalError `json:"error,omitempty"`
	Stats  pipeline.Stats     `json:"stats"`
	Cached bool               `json:"cached"`
}

// defaultFormats are rendered when a request names none.
var defaultFormats = []string{pipeline.FormatDOT, pipeline.FormatSVG}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	opts := s.defaults
	opts.Code = req.Code
	opts.ShowBuiltins = req.ShowBuiltins
	opts.ShowAllFunctions = req.ShowAllFunctions
	if req.RankDir != "" {
		opts.RankDir = req.RankDir
	}
	opts.Formats = req.Formats
	if len(opts.Formats) == 0 {
		opts.Formats = defaultFormats
	}

	res, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, evaluateResponse{
		DOT:    res.DOT,
		SVG:    string(res.Artifacts[pipeline.FormatSVG]),
		Graph:  res.Graph.Export(),
		Error:  res.EvalError,
		Stats:  res.Stats,
		Cached: res.CacheInfo.RenderHit,
	})
}

type samplesResponse struct {
	Default string           `json:"default"`
	Samples []samples.Sample `json:"samples"`
}

func (s *Server) handleListSamples(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, samplesResponse{
		Default: s.samples.DefaultSample().Name,
		Samples: s.samples.Samples,
	})
}

func (s *Server) handleGetSample(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	sample, ok := s.samples.Lookup(name)
	if !ok {
		s.writeError(w, r, apperrors.New(apperrors.ErrCodeSampleNotFound, "no sample named %q", name))
		return
	}
	writeJSON(w, http.StatusOK, sample)
}

type createSnippetRequest struct {
	Name             string `json:"name"`
	Code             string `json:"code"`
	ShowBuiltins     bool   `json:"show_builtins"`
	ShowAllFunctions bool   `json:"show_all_functions"`
}

func (s *Server) handleCreateSnippet(w http.ResponseWriter, r *http.Request) {
	var req createSnippetRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := apperrors.ValidateSnippetName(req.Name); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := apperrors.ValidateCode(req.Code); err != nil {
		s.writeError(w, r, err)
		return
	}

	sn, err := snippet.New(req.Name, req.Code)
	if err != nil {
		s.writeError(w, r, apperrors.Wrap(apperrors.ErrCodeInternal, err, "create snippet"))
		return
	}
	sn.ShowBuiltins = req.ShowBuiltins
	sn.ShowAllFunctions = req.ShowAllFunctions

	if err := s.store.Save(r.Context(), sn); err != nil {
		s.writeError(w, r, apperrors.Wrap(apperrors.ErrCodeStorage, err, "save snippet"))
		return
	}
	s.logger.Info("saved snippet", "id", sn.ID, "name", sn.Name)
	writeJSON(w, http.StatusCreated, sn)
}

func (s *Server) handleListSnippets(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, r, apperrors.Wrap(apperrors.ErrCodeStorage, err, "list snippets"))
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetSnippet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := apperrors.ValidateSnippetID(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	sn, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, storageError(err, "get snippet"))
		return
	}
	writeJSON(w, http.StatusOK, sn)
}

func (s *Server) handleDeleteSnippet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := apperrors.ValidateSnippetID(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, storageError(err, "delete snippet"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// storageError passes not-found through and marks everything else as a
// storage failure.
func storageError(err error, op string) error {
	if errors.Is(err, snippet.ErrNotFound) {
		return err
	}
	return apperrors.Wrap(apperrors.ErrCodeStorage, err, "%s", op)
}

type healthResponse struct {
	Status string         `json:"status"`
	Build  buildinfo.Info `json:"build"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Build: buildinfo.Get()})
}

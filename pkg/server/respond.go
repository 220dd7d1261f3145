package server

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/matzehuels/objgraph/pkg/errors"
	"github.com/matzehuels/objgraph/pkg/snippet"
)

// errorBody is the JSON shape of every API error.
type errorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status code. Internal errors are logged and
// reported without detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, snippet.ErrNotFound) {
		err = apperrors.Wrap(apperrors.ErrCodeSnippetNotFound, err, "snippet not found")
	}

	status := statusFor(err)
	body := errorBody{
		Error:     apperrors.UserMessage(err),
		Code:      string(apperrors.GetCode(err)),
		RequestID: RequestID(r.Context()),
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err, "request_id", body.RequestID)
		if body.Code == "" || body.Code == string(apperrors.ErrCodeInternal) {
			body.Error = "internal error"
			body.Code = string(apperrors.ErrCodeInternal)
		}
	}
	writeJSON(w, status, body)
}

func statusFor(err error) int {
	switch apperrors.ClassOf(err) {
	case apperrors.ClassInvalid:
		return http.StatusBadRequest
	case apperrors.ClassNotFound:
		return http.StatusNotFound
	case apperrors.ClassTimeout:
		return http.StatusGatewayTimeout
	case apperrors.ClassUnsupported:
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

// decode reads a JSON request body into v.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "invalid request body")
	}
	return nil
}

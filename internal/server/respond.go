package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/kurobon/quickgit/internal/git"
	"github.com/kurobon/quickgit/internal/state"
)

// Error kinds reported in error bodies.
const (
	KindValidation = "validation"
	KindNotFound   = "not_found"
	KindEngine     = "engine"
	KindInternal   = "internal"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// badRequest marks malformed input: undecodable bodies, unparsable ids.
type badRequest struct{ err error }

func (e badRequest) Error() string { return e.err.Error() }
func (e badRequest) Unwrap() error { return e.err }

func invalid(err error) error { return badRequest{err: err} }

func errMissing(field string) error {
	return fmt.Errorf("%s is required", field)
}

func notOpen(key string) error {
	return fmt.Errorf("%w: %s", state.ErrNotOpen, key)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// classify maps an error onto a status code and kind.
func classify(err error) (int, string) {
	var br badRequest
	switch {
	case errors.As(err, &br), state.IsValidation(err):
		return http.StatusBadRequest, KindValidation
	case state.IsNotFound(err):
		return http.StatusNotFound, KindNotFound
	case git.IsEngineError(err):
		return http.StatusConflict, KindEngine
	default:
		return http.StatusInternalServerError, KindInternal
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := classify(err)
	if status >= http.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind})
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return invalid(err)
	}
	return nil
}

// decodeOptional is decode for endpoints whose body may be empty.
func decodeOptional(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return invalid(err)
	}
	return nil
}

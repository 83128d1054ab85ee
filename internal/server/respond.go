package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/leapstack-labs/crossfilter/internal/filter"
	"github.com/leapstack-labs/crossfilter/internal/state"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status: unknown datasets, tables and columns are
// 404, malformed requests and invalid filter values 400, oversized bodies and
// filter sets too large for the session 413, anything else 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var decodeErr *filter.DecodeError
	var maxBytes *http.MaxBytesError
	switch {
	case state.IsNotFound(err):
		status = http.StatusNotFound
	case errors.Is(err, filter.ErrInvalidValue), errors.As(err, &decodeErr), errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.As(err, &maxBytes), errors.Is(err, errSessionTooLarge):
		status = http.StatusRequestEntityTooLarge
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

var errBadRequest = errors.New("bad request")

// decodeBody decodes an optional JSON body into v. An empty body leaves v
// untouched.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	err := dec.Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	var maxBytes *http.MaxBytesError
	var decodeErr *filter.DecodeError
	if errors.As(err, &maxBytes) || errors.As(err, &decodeErr) || errors.Is(err, filter.ErrInvalidValue) {
		return err
	}
	return fmt.Errorf("%w: %v", errBadRequest, err)
}

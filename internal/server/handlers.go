package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/leapstack-labs/crossfilter/internal/aggregate"
	"github.com/leapstack-labs/crossfilter/internal/engine"
	"github.com/leapstack-labs/crossfilter/internal/filter"
	"github.com/leapstack-labs/crossfilter/pkg/core"
)

// filtersBody is the optional request body of the filter-aware endpoints.
// Absent filters fall back to the session's filter set.
type filtersBody struct {
	Filters *filter.List `json:"filters"`
}

type rebinBody struct {
	Histogram []core.HistogramBin `json:"histogram"`
	Stats     *core.NumericStats  `json:"stats,omitempty"`
	Bins      int                 `json:"bins"`
}

type histogramBody struct {
	Histogram []core.HistogramBin `json:"histogram"`
}

// datasetID resolves the {dataset} URL parameter, by id or name.
func (s *Server) datasetID(r *http.Request) (string, error) {
	ds, err := s.engine.Store().GetDataset(r.Context(), chi.URLParam(r, "dataset"))
	if err != nil {
		return "", err
	}
	return ds.ID, nil
}

// requestFilters returns the body's filters, or the session's when the body
// has none.
func (s *Server) requestFilters(w http.ResponseWriter, r *http.Request, datasetID string) ([]filter.Node, error) {
	var body filtersBody
	if err := s.decodeBody(w, r, &body); err != nil {
		return nil, err
	}
	if body.Filters != nil {
		return *body.Filters, nil
	}
	return s.sessionFilters(r, datasetID)
}

func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", errBadRequest, name)
	}
	return n, nil
}

func aggregationOptions(r *http.Request) ([]engine.Option, error) {
	bins, err := intParam(r, "bins")
	if err != nil {
		return nil, err
	}
	limit, err := intParam(r, "limit")
	if err != nil {
		return nil, err
	}
	return []engine.Option{engine.WithBins(bins), engine.WithCategoryLimit(limit)}, nil
}

func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	datasets, err := s.engine.Store().ListDatasets(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if datasets == nil {
		datasets = []core.Dataset{}
	}
	writeJSON(w, http.StatusOK, datasets)
}

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	id, err := s.datasetID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	tables, err := s.engine.Store().GetTables(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if tables == nil {
		tables = []core.TableDescriptor{}
	}
	writeJSON(w, http.StatusOK, tables)
}

func (s *Server) handleListColumns(w http.ResponseWriter, r *http.Request) {
	cols, err := s.engine.Columns(r.Context(), chi.URLParam(r, "dataset"), chi.URLParam(r, "table"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cols)
}

func (s *Server) handleEffectiveFilters(w http.ResponseWriter, r *http.Request) {
	id, err := s.datasetID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	filters, err := s.requestFilters(w, r, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	eff, err := s.engine.GetEffectiveFilters(r.Context(), id, filters)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, eff)
}

func (s *Server) handleColumnAggregation(w http.ResponseWriter, r *http.Request) {
	opts, err := aggregationOptions(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := s.datasetID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	filters, err := s.requestFilters(w, r, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.engine.GetColumnAggregation(r.Context(), id,
		chi.URLParam(r, "table"), chi.URLParam(r, "column"), filters, opts...)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleTableAggregations(w http.ResponseWriter, r *http.Request) {
	opts, err := aggregationOptions(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := s.datasetID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	filters, err := s.requestFilters(w, r, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.engine.GetTableAggregations(r.Context(), id, chi.URLParam(r, "table"), filters, opts...)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetFilters(w http.ResponseWriter, r *http.Request) {
	id, err := s.datasetID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	nodes, err := s.sessionFilters(r, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, filtersBody{Filters: (*filter.List)(&nodes)})
}

func (s *Server) handlePutFilters(w http.ResponseWriter, r *http.Request) {
	id, err := s.datasetID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var body filtersBody
	if err := s.decodeBody(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	nodes := []filter.Node{}
	if body.Filters != nil {
		nodes = *body.Filters
	}
	for _, n := range nodes {
		if err := filter.Validate(n); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	if err := s.saveSessionFilters(w, r, id, nodes); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, filtersBody{Filters: (*filter.List)(&nodes)})
}

func (s *Server) handleDeleteFilters(w http.ResponseWriter, r *http.Request) {
	id, err := s.datasetID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.saveSessionFilters(w, r, id, nil); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRebin(w http.ResponseWriter, r *http.Request) {
	var body rebinBody
	if err := s.decodeBody(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if body.Bins <= 0 {
		s.writeError(w, r, fmt.Errorf("%w: bins must be positive", errBadRequest))
		return
	}
	hist := aggregate.Rebin(body.Histogram, body.Stats, body.Bins, s.opts.Rebin)
	if hist == nil {
		hist = []core.HistogramBin{}
	}
	writeJSON(w, http.StatusOK, histogramBody{Histogram: hist})
}

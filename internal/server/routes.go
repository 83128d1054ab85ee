package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) routes(r chi.Router) {
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(s.opts.RequestTimeout))
		r.Use(middleware.AllowContentType("application/json"))

		r.Post("/rebin", s.handleRebin)

		r.Get("/datasets", s.handleListDatasets)
		r.Route("/datasets/{dataset}", func(r chi.Router) {
			r.Get("/tables", s.handleListTables)
			r.Post("/effective-filters", s.handleEffectiveFilters)

			r.Get("/filters", s.handleGetFilters)
			r.Put("/filters", s.handlePutFilters)
			r.Delete("/filters", s.handleDeleteFilters)

			r.Route("/tables/{table}", func(r chi.Router) {
				r.Get("/columns", s.handleListColumns)
				r.Post("/aggregations", s.handleTableAggregations)
				r.Post("/columns/{column}/aggregation", s.handleColumnAggregation)
			})
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

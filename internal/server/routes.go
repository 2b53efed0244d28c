// Package server wires HTTP handlers into a chi router for the memory
// server via routing helpers.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes returns the router with the health check, the metrics
// endpoint, and the game's WebSocket path. gatherer may be nil to omit
// /metrics.
func SetupRoutes(hub *Hub, gatherer prometheus.Gatherer) http.Handler {
	h := NewHandlers(hub)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Health)
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	r.HandleFunc(hub.cfg.Path, h.WebSocket)
	return r
}

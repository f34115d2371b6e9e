// Package server wires the admin HTTP handlers into a chi router.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes returns the admin HTTP router for srv. The metrics endpoint is
// mounted only when gatherer is non-nil.
func SetupRoutes(srv *Server, cfg *Config, gatherer prometheus.Gatherer) http.Handler {
	h := NewHandlers(srv, cfg)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", h.Health)
	r.Get("/healthz", h.Health)
	r.Get("/sessions", h.Sessions)
	r.Get("/ws", h.WebSocket)
	r.Get("/test", h.TestPage)
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

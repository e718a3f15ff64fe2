// Package chi exposes the gateway over HTTP using the chi router.
package chi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/searchgate/internal/metrics"
)

// NewRouter wires the routes and middleware chain.
func NewRouter(s *Server, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(recoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())

	r.Get("/health_check", s.HealthCheck)
	r.Get("/ready", s.Ready)
	r.Get("/metrics", s.Metrics)

	// Some HTTP clients cannot send a GET body, so POST is accepted as well.
	r.Get("/query", s.Query)
	r.Post("/query", s.Query)
	r.Get("/first-names/{name}", s.FirstName)

	return r
}

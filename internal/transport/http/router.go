// Package httptransport assembles the HTTP surface. It stays thin: every
// route delegates to a feature handler, which delegates to a service.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"beacon/internal/platform/middleware"
)

// Registrar is implemented by every feature handler.
type Registrar interface {
	Register(r chi.Router)
}

// NewRouter wires the API router: process endpoints at the root, feature
// routes under /v1.
func NewRouter(logger *slog.Logger, handlers ...Registrar) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))

	r.Get("/healthz", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(30 * time.Second))
		api.Use(middleware.ContentTypeJSON)
		for _, h := range handlers {
			h.Register(api)
		}
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

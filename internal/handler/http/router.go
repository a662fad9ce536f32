package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/inkpress/mediaedit/internal/session"
	"github.com/inkpress/mediaedit/pkg/health"
	"github.com/inkpress/mediaedit/pkg/middleware"
)

// NewRouter creates a chi router with the editor session routes registered.
func NewRouter(
	sessions *session.Manager,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics("mediaedit"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	sessionHandler := NewSessionHandler(sessions, logger)

	r.Route("/api/v1/sessions", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(LimitBody)

		r.Post("/", sessionHandler.CreateSession)
		r.Get("/{id}", sessionHandler.GetSession)
		r.Post("/{id}/load", sessionHandler.LoadMedia)
		r.Post("/{id}/resume", sessionHandler.ResumeSession)
		r.Put("/{id}/edit", sessionHandler.SubmitEdit)
		r.Delete("/{id}", sessionHandler.DeleteSession)
	})

	return r
}

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Legacy page form: POST /?handler=PostOperation
	r.Post("/", s.handleLegacyCommand)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/system/metrics", s.handleSystemMetrics)

		r.Post("/commands", s.handleCommand)

		r.Route("/devices", func(r chi.Router) {
			r.Get("/state", s.handleGetDeviceState)
		})
	})

	// WebSocket event stream
	r.Get(s.wsPath(), s.handleWebSocket)

	if s.metricsCfg.Enabled {
		r.Handle(s.metricsPath(), s.prometheusHandler())
	}

	return r
}

// handleHealth reports whether the broker link is up.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if !s.bridge.IsConnected() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":  "degraded",
			"mqtt":    "disconnected",
			"version": s.version,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"mqtt":    "connected",
		"version": s.version,
	})
}

func (s *Server) wsPath() string {
	if s.wsCfg.Path == "" {
		return "/ws"
	}
	return s.wsCfg.Path
}

func (s *Server) metricsPath() string {
	if s.metricsCfg.Path == "" {
		return "/metrics"
	}
	return s.metricsCfg.Path
}

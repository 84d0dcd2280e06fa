package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthCheckTimeout bounds each dependency check of GET /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "route not found")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		// Local records. chi matches /stats before the wildcard.
		r.Route("/records", func(r chi.Router) {
			r.Get("/", s.handleListRecords)
			r.Delete("/", s.handleClearRecords)
			r.Get("/stats", s.handleRecordStats)
			r.Get("/*", s.handleGetRecord)
			r.Put("/*", s.handlePutRecord)
			r.Delete("/*", s.handleDeleteRecord)
		})
		r.Get("/download/*", s.handleDownload)

		// Devices
		r.Post("/normalize", s.handleNormalize)
		r.Get("/device", s.handleSelectDevice)
		r.Post("/devices", s.handleCreateDevice)
		r.Get("/catalog", s.handleCatalog)

		// Editing sessions
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleOpenSession)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleCloseSession)
				r.Put("/device", s.handleSessionDevice)
				r.Put("/patch", s.handleSelectPatch)
				r.Post("/notes/{number}", s.handleAuditionNote)
			})
		})

		r.Get(s.wsPath(), s.handleWebSocket)
	})

	return r
}

// wsPath returns the WebSocket route under /api/v1.
func (s *Server) wsPath() string {
	if s.wsCfg.Path == "" {
		return "/ws"
	}
	return s.wsCfg.Path
}

// handleHealth reports the server and dependency status. The response is
// 200 while the server runs; a failing store turns the status to "degraded".
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	components := map[string]string{}

	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := s.store.HealthCheck(ctx)
		cancel()
		if err != nil {
			status = "degraded"
			components["store"] = err.Error()
		} else {
			components["store"] = "ok"
		}
	}
	components["mqtt"] = connectionStatus(s.mqtt)
	components["influxdb"] = connectionStatus(s.influx)
	if s.remote {
		components["remote"] = "configured"
	} else {
		components["remote"] = "disabled"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     status,
		"version":    s.version,
		"components": components,
	})
}

func connectionStatus(c ConnectionReporter) string {
	switch {
	case c == nil:
		return "disabled"
	case c.IsConnected():
		return "connected"
	default:
		return "disconnected"
	}
}

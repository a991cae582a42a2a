// Dual Gravity - Competitive Music Discovery Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dualgravity

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router builds the HTTP routing tree. The stage endpoints require a
// bearer credential; health and metrics do not.
func (s *Server) Router(mw *MiddlewareConfig) http.Handler {
	if mw == nil {
		mw = DefaultMiddlewareConfig()
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(mw.CORS())
	r.Use(Metrics)

	r.Get("/api/v1/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/dgs", func(r chi.Router) {
		r.Use(mw.RateLimitByIP())
		r.Use(RequireBearer)
		r.Post("/stage1-artists", s.handleStage1Artists)
		r.Post("/stage2-tracks", s.handleStage2Tracks)
		r.Post("/stage3-score", s.handleStage3Score)
	})

	return r
}

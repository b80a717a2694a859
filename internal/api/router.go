// Sanctuary - Wellness Video Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sanctuary

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig configures request limits.
type RouterConfig struct {
	// MaxBodyBytes caps request bodies. Zero disables the cap.
	MaxBodyBytes int64

	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitDisabled bool
}

// NewRouter builds the chi router for the API.
//
// Middleware order: request ID first so every later layer logs with it,
// then real IP (needed by the rate limiter), panic recovery, metrics and
// finally the per-route limits.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(RequestMetrics())

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	r.Get("/healthz", h.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow, cfg.RateLimitDisabled))
		if cfg.MaxBodyBytes > 0 {
			r.Use(chimiddleware.RequestSize(cfg.MaxBodyBytes))
		}

		r.Post("/recommendations", h.Recommend)
		r.Post("/feedback", h.Feedback)
		r.Get("/stats", h.Stats)
	})

	return r
}

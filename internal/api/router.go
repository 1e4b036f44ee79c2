// Moodtape - Mood-Conditioned Song Recommendation Service
// Copyright 2026 Moodtape Authors
// SPDX-License-Identifier: MIT
// https://github.com/moodtape/moodtape

// Package api provides the HTTP boundary using the Chi router.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/moodtape/moodtape/internal/config"
	"github.com/moodtape/moodtape/internal/middleware"
)

// Router wires handlers and middleware into the HTTP mux.
type Router struct {
	handler *Handler
	cfg     *config.ServerConfig
}

// NewRouter creates a router over the given handler set.
func NewRouter(handler *Handler, cfg *config.ServerConfig) *Router {
	return &Router{handler: handler, cfg: cfg}
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to all routes in order.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   router.corsOrigins(),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "ETag"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health and metrics stay outside the API rate limit so probes
	// and scrapes are never shed.
	r.Get("/api/v1/health", router.handler.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if router.cfg.RateLimit > 0 {
			r.Use(httprate.LimitByIP(router.cfg.RateLimit, time.Minute))
		}
		r.Use(middleware.PrometheusMetrics)

		r.Post("/recommend", router.handler.Recommend)
		r.Post("/session/reset", router.handler.ResetSession)
		r.Get("/songs", router.handler.SongsByMood)
		r.Post("/index/rebuild", router.handler.RebuildIndex)
	})

	return r
}

// corsOrigins returns the configured origins, defaulting to allow
// all. The API carries no credentials, so a permissive default is
// acceptable.
func (router *Router) corsOrigins() []string {
	if len(router.cfg.CORSOrigins) == 0 {
		return []string{"*"}
	}
	return router.cfg.CORSOrigins
}

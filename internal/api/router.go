// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openmarket/taskfeed/internal/middleware"
)

// RouterConfig holds the HTTP-surface knobs.
type RouterConfig struct {
	RateLimitReqs   int
	RateLimitWindow time.Duration
	CORSOrigins     []string
}

// NewRouter assembles the route tree.
func NewRouter(h *Handlers, cfg RouterConfig) http.Handler {
	if cfg.RateLimitReqs <= 0 {
		cfg.RateLimitReqs = 100
	}
	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = time.Minute
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(cfg.RateLimitReqs, cfg.RateLimitWindow))
		r.Use(middleware.Prometheus)

		r.Post("/recommendations", h.Recommend)
		r.Post("/events", h.RecordEvent)
		r.Get("/users/{userID}/tasks/{taskID}/match", h.MatchScore)
		r.Get("/users/{userID}/interactions", h.UserInteractions)
		r.Get("/tasks/{taskID}/interactions", h.TaskInteractions)
	})

	return r
}

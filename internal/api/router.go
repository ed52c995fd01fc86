// Viator - Attraction Discovery and Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/viator

// Package api provides HTTP routing and handlers using the chi router.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/viator/internal/metrics"
)

// RouterConfig holds routing-level settings.
type RouterConfig struct {
	// CORSOrigins lists allowed origins. Empty disables CORS handling.
	CORSOrigins []string

	// RateLimit is requests per client IP per RateLimitWindow. Zero
	// disables rate limiting.
	RateLimit       int
	RateLimitWindow time.Duration
}

// Router assembles the HTTP surface around a Handler.
type Router struct {
	handler *Handler
	cfg     RouterConfig
}

// NewRouter creates a Router.
func NewRouter(handler *Handler, cfg RouterConfig) *Router {
	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = time.Minute
	}
	return &Router{handler: handler, cfg: cfg}
}

// Setup configures all routes and the global middleware stack.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	if len(router.cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: router.cfg.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			MaxAge:         300,
		}))
	}

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		if router.cfg.RateLimit > 0 {
			r.Use(httprate.LimitByIP(router.cfg.RateLimit, router.cfg.RateLimitWindow))
		}
		r.Use(recordMetrics)

		r.Get("/health", router.handler.Health)

		r.Get("/users/{username}/recommendations", router.handler.Recommendations)
		r.Post("/refresh", router.handler.Refresh)

		r.Get("/attractions/{id}", router.handler.Attraction)
		r.Get("/search/{keyword}", router.handler.Search)

		r.Route("/profiles", func(r chi.Router) {
			r.Get("/{username}", router.handler.Profile)
			r.Post("/", router.handler.PutProfile)
			r.Put("/{username}", router.handler.PutProfile)
		})
	})

	return r
}

// requestID ensures every request carries an X-Request-ID, echoed back in
// the response for correlation.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
			r.Header.Set("X-Request-ID", id)
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

// recordMetrics records per-route request counts and latency. The chi
// route pattern keeps label cardinality bounded.
func recordMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		metrics.RecordHTTPRequest(r.Method, route, ww.Status(), time.Since(start))
	})
}

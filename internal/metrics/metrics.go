// Viator - Attraction Discovery and Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/viator

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// Recommendation Metrics
	RecommendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_requests_total",
			Help: "Total recommendation requests by cache outcome",
		},
		[]string{"cache"}, // "hit", "miss"
	)

	RefreshRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "refresh_runs_total",
			Help: "Total batch refresh runs",
		},
	)

	RefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "refresh_duration_seconds",
			Help:    "Duration of batch refresh runs in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)

	RefreshUsersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refresh_users_total",
			Help: "Users processed by batch refresh, by outcome",
		},
		[]string{"outcome"}, // "refreshed", "failed"
	)

	// Search Index Metrics
	IndexQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "index_query_duration_seconds",
			Help:    "Duration of search index round trips in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // "search", "msearch"
	)

	IndexQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "index_query_errors_total",
			Help: "Total search index errors",
		},
		[]string{"operation"},
	)
)

// RecordHTTPRequest records one served HTTP request. Route must be the
// chi route pattern, never the raw path, to keep cardinality bounded.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// RecordIndexQuery records one search index round trip.
func RecordIndexQuery(operation string, duration time.Duration, err error) {
	IndexQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		IndexQueryErrors.WithLabelValues(operation).Inc()
	}
}

// RecordRefreshRun records one completed batch refresh. Failed users are
// not recorded here; Observer.RefreshUserFailed counts each failure at
// the point it happens inside the engine.
func RecordRefreshRun(duration time.Duration, refreshed int) {
	RefreshRuns.Inc()
	RefreshDuration.Observe(duration.Seconds())
	RefreshUsersTotal.WithLabelValues("refreshed").Add(float64(refreshed))
}

// Observer adapts the package counters to the recommendation engine's
// and search gateway's observer contracts.
type Observer struct{}

func (Observer) RequestServed(cacheHit bool) {
	if cacheHit {
		RecommendRequestsTotal.WithLabelValues("hit").Inc()
	} else {
		RecommendRequestsTotal.WithLabelValues("miss").Inc()
	}
}

func (Observer) RefreshUserFailed() {
	RefreshUsersTotal.WithLabelValues("failed").Inc()
}

func (Observer) QueryExecuted(operation string, duration time.Duration, err error) {
	RecordIndexQuery(operation, duration, err)
}

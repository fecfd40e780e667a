// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package metrics registers the Prometheus collectors exported on /metrics.

Collectors are package-level and registered once through promauto, so domain
packages increment them directly without passing a registry around.
*/
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeNoop  = "noop"
	OutcomeError = "error"
)

var (
	// SchemaOperations counts schema collection calls by operation and outcome.
	SchemaOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parseadmin_schema_operations_total",
			Help: "Schema collection operations by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	// TokenEvents counts token transitions. kind is email_verification,
	// password_reset or session.
	TokenEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parseadmin_token_events_total",
			Help: "Token lifecycle events by kind.",
		},
		[]string{"kind", "event"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parseadmin_http_requests_total",
			Help: "HTTP requests handled by the admin API.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "parseadmin_http_request_duration_seconds",
			Help:    "Latency of HTTP requests handled by the admin API.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request count and latency per matched chi route pattern.
// Unmatched paths are folded into a single label to bound cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		start := time.Now()
		wrapped := &statusRecorder{ResponseWriter: writer, status: http.StatusOK}

		next.ServeHTTP(wrapped, request)

		route := "unmatched"
		if routeContext := chi.RouteContext(request.Context()); routeContext != nil {
			if pattern := routeContext.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		httpRequestsTotal.WithLabelValues(request.Method, route, strconv.Itoa(wrapped.status)).Inc()
		httpRequestDuration.WithLabelValues(request.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (recorder *statusRecorder) WriteHeader(code int) {
	recorder.status = code
	recorder.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (recorder *statusRecorder) Unwrap() http.ResponseWriter {
	return recorder.ResponseWriter
}

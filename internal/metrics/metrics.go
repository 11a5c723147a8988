// VeriLoc - GNSS Position Authenticity Verification Gateway
// Copyright 2026 VeriLoc Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/veriloc/veriloc

// Package metrics provides Prometheus instrumentation for the gateway:
// oracle lookup latency and outcomes, circuit breaker state, admission gate
// pressure, verification classifications and the HTTP surface.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Oracle client metrics

	OracleRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "veriloc_oracle_request_duration_seconds",
			Help:    "Duration of verification-oracle lookups in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "region"}, // operation: "single", "window"
	)

	OracleRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "veriloc_oracle_requests_total",
			Help: "Total verification-oracle lookups by outcome",
		},
		[]string{"operation", "region", "outcome"}, // outcome: "ok", "empty", "auth_retry", "error"
	)

	// Identity provider metrics

	TokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "veriloc_token_refreshes_total",
			Help: "Total identity-provider token fetches by outcome",
		},
		[]string{"outcome"}, // "ok", "unauthorized", "unavailable"
	)

	// Circuit breaker metrics (shared label: breaker name)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "veriloc_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "veriloc_circuit_breaker_transitions_total",
			Help: "Total circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "veriloc_circuit_breaker_requests_total",
			Help: "Total requests through circuit breakers by result",
		},
		[]string{"name", "result"}, // "success", "failure", "rejected"
	)

	// Admission control metrics

	AdmissionRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "veriloc_admission_rejections_total",
			Help: "Total feed submissions rejected by saturated admission gates",
		},
		[]string{"feed", "operation"},
	)

	AdmissionInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "veriloc_admission_in_flight",
			Help: "Currently admitted pipelines per gate",
		},
		[]string{"feed", "operation"},
	)

	// Verification metrics

	VerifiedFixes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "veriloc_verified_fixes_total",
			Help: "Total signal fixes examined by classification outcome",
		},
		[]string{"feed", "classification"}, // "authentic", "not_authentic", "unknown"
	)

	RealFakeDetections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "veriloc_real_fake_detections_total",
			Help: "Fixes that matched neither the exact nor any windowed oracle answer",
		},
		[]string{"feed"},
	)

	MeaconingDetections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "veriloc_meaconing_detections_total",
			Help: "Trip positions rejected by the clock-drift pre-check",
		},
	)

	BatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "veriloc_batch_verification_duration_seconds",
			Help:    "End-to-end verification duration per batch",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"feed"},
	)

	// Sink metrics

	SinkDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "veriloc_sink_deliveries_total",
			Help: "Total downstream sink deliveries by outcome",
		},
		[]string{"sink", "outcome"}, // sink: "accounting", "anonymizer", "anonengine"
	)

	// HTTP metrics

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "veriloc_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "veriloc_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
)

// ObserveHTTPRequest records one served HTTP request.
func ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	HTTPRequests.WithLabelValues(method, path, code).Inc()
	HTTPRequestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
}

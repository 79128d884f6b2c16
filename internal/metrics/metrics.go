// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Detection Metrics
	DetectionRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "civicpulse_detection_runs_total",
			Help: "Duplicate detection runs by outcome",
		},
		[]string{"region", "outcome"},
	)

	DetectionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "civicpulse_detection_duration_seconds",
			Help:    "Time spent in duplicate detection, excluding the snapshot fetch",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"region"},
	)

	DetectionGroups = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "civicpulse_detection_groups",
			Help: "Duplicate groups returned by the most recent run",
		},
		[]string{"region"},
	)

	DetectionReportsScanned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "civicpulse_detection_reports_scanned_total",
			Help: "Reports passed to the detector",
		},
		[]string{"region"},
	)

	DetectionReportsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "civicpulse_detection_reports_skipped_total",
			Help: "Malformed reports skipped by the detector",
		},
		[]string{"region"},
	)

	// Storage Metrics
	SourceFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "civicpulse_source_fetch_duration_seconds",
			Help:    "Time spent fetching report snapshots",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend"},
	)

	SourceFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "civicpulse_source_fetch_errors_total",
			Help: "Failed report snapshot fetches",
		},
		[]string{"backend"},
	)

	SnapshotCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "civicpulse_snapshot_cache_hits_total",
			Help: "Report snapshots served from cache",
		},
	)

	SnapshotCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "civicpulse_snapshot_cache_misses_total",
			Help: "Report snapshots fetched from the source",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "civicpulse_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "civicpulse_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// HTTP Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "civicpulse_http_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "civicpulse_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "civicpulse_http_requests_in_flight",
			Help: "HTTP requests currently being served",
		},
	)

	// Event Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "civicpulse_events_published_total",
			Help: "Domain events published",
		},
		[]string{"topic"},
	)

	EventsHandled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "civicpulse_events_handled_total",
			Help: "Domain events consumed by handlers",
		},
		[]string{"topic", "outcome"},
	)

	ReportsFlagged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "civicpulse_reports_flagged_total",
			Help: "Reports marked important by operators",
		},
		[]string{"region"},
	)
)

// Detection outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeEmpty   = "empty"
	OutcomePartial = "partial"
	OutcomeError   = "error"
)

// RegionLabel maps the all-regions query to a readable label value.
func RegionLabel(region string) string {
	if region == "" {
		return "all"
	}
	return region
}

// RecordDetection records one detection run.
func RecordDetection(region, outcome string, duration time.Duration, scanned, skipped, groups int) {
	label := RegionLabel(region)
	DetectionRuns.WithLabelValues(label, outcome).Inc()
	if outcome == OutcomeError {
		return
	}
	DetectionDuration.WithLabelValues(label).Observe(duration.Seconds())
	DetectionReportsScanned.WithLabelValues(label).Add(float64(scanned))
	DetectionReportsSkipped.WithLabelValues(label).Add(float64(skipped))
	DetectionGroups.WithLabelValues(label).Set(float64(groups))
}

// RecordSourceFetch records a snapshot fetch.
func RecordSourceFetch(backend string, duration time.Duration, err error) {
	SourceFetchDuration.WithLabelValues(backend).Observe(duration.Seconds())
	if err != nil {
		SourceFetchErrors.WithLabelValues(backend).Inc()
	}
}

// RecordSnapshotCache records a snapshot cache lookup.
func RecordSnapshotCache(hit bool) {
	if hit {
		SnapshotCacheHits.Inc()
	} else {
		SnapshotCacheMisses.Inc()
	}
}

// RecordBreakerTransition records a breaker state change. State names are
// those of gobreaker: "closed", "half-open", "open".
func RecordBreakerTransition(name, from, to string) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
}

func breakerStateValue(state string) float64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}

// RecordAPIRequest records an HTTP request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordEventPublished counts a published event.
func RecordEventPublished(topic string) {
	EventsPublished.WithLabelValues(topic).Inc()
}

// RecordEventHandled counts a consumed event.
func RecordEventHandled(topic string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	EventsHandled.WithLabelValues(topic, outcome).Inc()
}

// RecordReportFlagged counts an important-flag write-back.
func RecordReportFlagged(region string) {
	ReportsFlagged.WithLabelValues(RegionLabel(region)).Inc()
}

// ErrorOutcome classifies err for DetectionRuns: nil is OutcomeOK, anything
// wrapping partial is OutcomePartial, the rest OutcomeError.
func ErrorOutcome(err, partial error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case partial != nil && errors.Is(err, partial):
		return OutcomePartial
	default:
		return OutcomeError
	}
}

// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

/*
Package metrics holds the Prometheus collectors for CivicPulse.

Collectors are registered on the default registry with promauto and exposed
at /metrics through promhttp.

Detection:
  - civicpulse_detection_runs_total{region,outcome}: outcome is ok, empty, partial or error
  - civicpulse_detection_duration_seconds{region}
  - civicpulse_detection_groups{region}: groups returned by the last run
  - civicpulse_detection_reports_scanned_total{region}
  - civicpulse_detection_reports_skipped_total{region}: malformed reports

Storage and resilience:
  - civicpulse_source_fetch_duration_seconds{backend}
  - civicpulse_source_fetch_errors_total{backend}
  - civicpulse_snapshot_cache_hits_total / _misses_total
  - civicpulse_circuit_breaker_state{name}: 0 closed, 1 half-open, 2 open
  - civicpulse_circuit_breaker_transitions_total{name,from,to}

HTTP and events:
  - civicpulse_http_requests_total{method,endpoint,status}
  - civicpulse_http_request_duration_seconds{method,endpoint}
  - civicpulse_http_requests_in_flight
  - civicpulse_events_published_total{topic}
  - civicpulse_events_handled_total{topic,outcome}
  - civicpulse_reports_flagged_total{region}
*/
package metrics

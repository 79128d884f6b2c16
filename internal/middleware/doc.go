// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

// Package middleware holds the HTTP middleware shared by all API routes:
// request IDs with request-scoped loggers, access logging and Prometheus
// instrumentation.
package middleware

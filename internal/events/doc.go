// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

// Package events carries domain events between CivicPulse components over an
// in-process watermill pub/sub.
//
// The duplicate service publishes a DuplicatesDetected event after every
// detection run and a ReportFlagged event after every important-flag
// write-back. The Router consumes them; the built-in audit handler writes
// each event to the structured log and counts it in Prometheus.
//
// Payloads are JSON. Message metadata carries event_type and, when the
// publishing context has one, correlation_id.
package events

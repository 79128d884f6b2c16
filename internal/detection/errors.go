// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

package detection

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedReport matches every *MalformedReportError.
	ErrMalformedReport = errors.New("malformed report")

	// ErrPartialResult matches *DeadlineExceededError.
	ErrPartialResult = errors.New("detection stopped before completion")

	// ErrSourceUnavailable is returned when reports could not be fetched.
	ErrSourceUnavailable = errors.New("report source unavailable")

	// ErrReportNotFound is returned by flaggers for unknown report IDs.
	ErrReportNotFound = errors.New("report not found")

	// ErrReportExists is returned when a new report reuses a stored ID.
	ErrReportExists = errors.New("report already exists")

	// ErrReadOnlySource is returned for writes when the backend has no writer.
	ErrReadOnlySource = errors.New("report source is read-only")

	// ErrNoSnapshot is returned when no scan has been stored for a region.
	ErrNoSnapshot = errors.New("no stored scan for region")
)

// MalformedReportError describes a report that was skipped during detection.
type MalformedReportError struct {
	ReportID string
	Index    int
	Reason   string
}

func (e *MalformedReportError) Error() string {
	id := e.ReportID
	if id == "" {
		id = "<no id>"
	}
	return fmt.Sprintf("malformed report %s at index %d: %s", id, e.Index, e.Reason)
}

func (e *MalformedReportError) Unwrap() error {
	return ErrMalformedReport
}

// DeadlineExceededError is returned with a partial Result when the context
// ends mid-pass. It matches ErrPartialResult and the context's own error.
type DeadlineExceededError struct {
	Processed int
	Total     int
	Groups    int
	Err       error
}

func (e *DeadlineExceededError) Error() string {
	return fmt.Sprintf("duplicate detection stopped after %d of %d reports (%d groups resolved): %v",
		e.Processed, e.Total, e.Groups, e.Err)
}

func (e *DeadlineExceededError) Unwrap() []error {
	return []error{ErrPartialResult, e.Err}
}

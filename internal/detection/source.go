// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

package detection

import "context"

// ReportSource supplies the snapshot of active reports for a region. An empty
// region means every region. Implementations return reports ordered by
// creation time, then ID, so that repeated detection over an unchanged
// snapshot is deterministic.
type ReportSource interface {
	FetchActiveReports(ctx context.Context, region string) ([]Report, error)
}

// Flagger writes the important flag back to storage. A flag with a region
// must not touch reports of another region; such reports are reported as
// ErrReportNotFound.
type Flagger interface {
	MarkImportant(ctx context.Context, flag Flag) error
}

// ReportWriter persists incoming reports. CreateReport never replaces a
// stored report; a taken ID yields ErrReportExists.
type ReportWriter interface {
	CreateReport(ctx context.Context, r *Report) error
}

// SourceFunc adapts a function to ReportSource.
type SourceFunc func(ctx context.Context, region string) ([]Report, error)

// FetchActiveReports calls f.
func (f SourceFunc) FetchActiveReports(ctx context.Context, region string) ([]Report, error) {
	return f(ctx, region)
}

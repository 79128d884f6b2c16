// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

/*
Package detection finds duplicate civic issue reports.

Citizens frequently report the same pothole, broken streetlight or overflowing
bin several times. The ClusterDetector groups such reports so operators can
act on one high-signal issue instead of triaging each report.

# Grouping Rules

Two reports belong together when all of the following hold:
  - Both are active (status open or in_progress)
  - They share a category
  - They were filed by different reporters
  - The great-circle (haversine) distance to the group's primary is at most
    the configured radius, 500 meters by default

Grouping is greedy and anchored. Reports are visited in input order; the
first unprocessed report that has at least one match becomes the primary, and
every unprocessed match joins its group. Distance is always measured to the
primary, never between related reports, so the grouping is not transitive.
Every report ends up in at most one group.

Groups are sorted by size (largest first, ties keep the primary's input
order) and capped, by default at 50.

# Usage

	detector, err := detection.NewClusterDetector(detection.DefaultDetectorConfig())
	if err != nil {
	    return err
	}

	result, err := detector.Detect(ctx, reports)
	switch {
	case errors.Is(err, detection.ErrPartialResult):
	    // deadline hit: result.Groups holds what was resolved, result.Partial is true
	case err != nil:
	    return err
	case result.Empty():
	    // healthy, nothing to review
	}

# Malformed Input

A report without an ID, reporter, category or usable coordinates is skipped
and logged; it never aborts the pass. The (0,0) point is treated as a missing
location. Skipped reports are listed in Result.Malformed.

# Concurrency

ClusterDetector holds only immutable configuration. Each Detect call owns its
processed markers and spatial index, so one detector can serve concurrent
requests without locking.

# Around the Detector

The rest of the package is the calling layer: ReportSource implementations
(DuckDB, MongoDB) that supply snapshots of active reports, a circuit breaker
and a short-lived snapshot cache in front of them, the Service that runs
detection per region and handles the important-flag write-back, the Scanner
that runs detection periodically, and a Badger-backed store for the latest
scan of each region.
*/
package detection

// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

package detection

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/tomtom215/civicpulse/internal/logging"
	"github.com/tomtom215/civicpulse/internal/validation"
)

const (
	// DefaultRadiusMeters is how close two reports must be to describe the same issue.
	DefaultRadiusMeters = 500.0

	// DefaultMaxGroups caps the number of groups returned by one pass.
	DefaultMaxGroups = 50
)

// DetectorConfig tunes a ClusterDetector.
type DetectorConfig struct {
	RadiusMeters float64 `validate:"gt=0"`
	MaxGroups    int     `validate:"gt=0"`

	// SpatialIndex enables the per-category grid prefilter. Results are
	// identical either way; the grid only avoids comparing distant reports.
	SpatialIndex bool
}

// DefaultDetectorConfig returns a 500 m radius, a 50 group cap and the grid enabled.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		RadiusMeters: DefaultRadiusMeters,
		MaxGroups:    DefaultMaxGroups,
		SpatialIndex: true,
	}
}

// ClusterDetector groups duplicate reports. It is immutable after
// construction and safe for concurrent use.
type ClusterDetector struct {
	cfg DetectorConfig
}

// NewClusterDetector validates cfg and returns a detector.
func NewClusterDetector(cfg DetectorConfig) (*ClusterDetector, error) {
	if verr := validation.ValidateStruct(&cfg); verr != nil {
		return nil, fmt.Errorf("invalid detector config: %w", verr)
	}
	return &ClusterDetector{cfg: cfg}, nil
}

// Config returns the detector's configuration.
func (d *ClusterDetector) Config() DetectorConfig {
	return d.cfg
}

// Detect groups duplicate reports from a snapshot.
//
// Malformed and inactive reports are skipped. The returned Result is never
// nil. When ctx ends before every report has been visited, Detect returns the
// groups resolved so far (sorted and capped, Result.Partial set) together
// with a *DeadlineExceededError.
func (d *ClusterDetector) Detect(ctx context.Context, reports []Report) (*Result, error) {
	res := &Result{
		Groups:     []DuplicateGroup{},
		Scanned:    len(reports),
		ComputedAt: time.Now().UTC(),
	}

	active := d.admit(ctx, reports, res)
	res.Active = len(active)

	coords := make([]Coordinates, len(active))
	category := make([]string, len(active))
	for p, i := range active {
		coords[p] = *reports[i].Location
		category[p] = reports[i].CategoryID
	}

	var finder candidateFinder = linearScan{category: category}
	if d.cfg.SpatialIndex {
		finder = newSpatialIndex(coords, category, d.cfg.RadiusMeters)
	}

	processed := make([]bool, len(active))
	var groups []DuplicateGroup
	var buf []int

	for p := range active {
		if err := ctx.Err(); err != nil {
			d.finish(res, groups)
			res.Partial = true
			logging.Ctx(ctx).Warn().
				Err(err).
				Int("processed", p).
				Int("active", len(active)).
				Int("groups", len(groups)).
				Msg("Duplicate detection stopped early, returning partial result")
			return res, &DeadlineExceededError{Processed: p, Total: len(active), Groups: len(groups), Err: err}
		}
		if processed[p] {
			continue
		}
		processed[p] = true

		primary := &reports[active[p]]
		buf = finder.candidates(p, buf[:0])

		var related []int
		for _, q := range buf {
			if processed[q] {
				continue
			}
			other := &reports[active[q]]
			if other.ReporterID == primary.ReporterID {
				continue
			}
			if HaversineMeters(coords[p], coords[q]) > d.cfg.RadiusMeters {
				continue
			}
			related = append(related, q)
		}
		if len(related) == 0 {
			continue
		}

		group := DuplicateGroup{
			Primary:  *primary,
			Related:  make([]Report, len(related)),
			Count:    len(related) + 1,
			Category: primary.CategoryID,
			Centroid: coords[p],
		}
		for k, q := range related {
			processed[q] = true
			group.Related[k] = reports[active[q]]
		}
		groups = append(groups, group)
	}

	d.finish(res, groups)
	return res, nil
}

// admit returns the input positions that take part in clustering, recording
// malformed and inactive reports on res.
func (d *ClusterDetector) admit(ctx context.Context, reports []Report, res *Result) []int {
	active := make([]int, 0, len(reports))
	seen := make(map[string]int, len(reports))

	for i := range reports {
		r := &reports[i]
		reason := malformedReason(r)
		if reason == "" {
			if first, dup := seen[r.ID]; dup {
				reason = fmt.Sprintf("duplicate id, first seen at index %d", first)
			}
		}
		if reason != "" {
			merr := &MalformedReportError{ReportID: r.ID, Index: i, Reason: reason}
			res.Malformed = append(res.Malformed, merr)
			logging.Ctx(ctx).Warn().
				Str("report_id", r.ID).
				Int("index", i).
				Str("reason", reason).
				Msg("Skipping malformed report")
			continue
		}
		seen[r.ID] = i

		if !r.Status.IsActive() {
			res.Inactive++
			continue
		}
		active = append(active, i)
	}
	return active
}

func malformedReason(r *Report) string {
	switch {
	case r.ID == "":
		return "missing id"
	case r.ReporterID == "":
		return "missing reporter"
	case r.CategoryID == "":
		return "missing category"
	case r.Location == nil:
		return "missing coordinates"
	case !r.Location.InRange():
		return "coordinates out of range"
	case r.Location.IsUnknown():
		return "unknown location (0,0)"
	case !r.Status.IsKnown():
		return fmt.Sprintf("unknown status %q", r.Status)
	}
	return ""
}

// finish orders groups by size, largest first, keeping discovery order for
// equal sizes, and applies the group cap.
func (d *ClusterDetector) finish(res *Result, groups []DuplicateGroup) {
	slices.SortStableFunc(groups, func(a, b DuplicateGroup) int {
		return cmp.Compare(b.Count, a.Count)
	})
	res.TotalGroups = len(groups)
	if len(groups) > d.cfg.MaxGroups {
		groups = groups[:d.cfg.MaxGroups]
	}
	if groups == nil {
		groups = []DuplicateGroup{}
	}
	res.Groups = groups
}

// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

package detection

import (
	"math"
	"time"
)

// CoordinateEpsilon is the tolerance used to recognise the (0,0)
// "unknown location" placeholder written by clients without a GPS fix.
const CoordinateEpsilon = 1e-7

// Coordinates is a WGS84 position in degrees.
type Coordinates struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// IsUnknown reports whether c is the (0,0) placeholder.
func (c Coordinates) IsUnknown() bool {
	return math.Abs(c.Latitude) < CoordinateEpsilon && math.Abs(c.Longitude) < CoordinateEpsilon
}

// InRange reports whether both components are finite and inside WGS84 bounds.
func (c Coordinates) InRange() bool {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) {
		return false
	}
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

// Status is the lifecycle state of a report.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusSolved     Status = "solved"
	StatusCompleted  Status = "completed"
	StatusRejected   Status = "rejected"
)

// IsActive reports whether reports in this state take part in detection.
func (s Status) IsActive() bool {
	return s == StatusOpen || s == StatusInProgress
}

// IsKnown reports whether s is one of the five lifecycle states.
func (s Status) IsKnown() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusSolved, StatusCompleted, StatusRejected:
		return true
	}
	return false
}

// ActiveStatuses lists the states a ReportSource should return.
func ActiveStatuses() []Status {
	return []Status{StatusOpen, StatusInProgress}
}

// Report is a fully resolved citizen report. Reporter and category are plain
// identifiers; sources resolve any references before handing reports over.
type Report struct {
	ID         string       `json:"id"`
	ReporterID string       `json:"reporterId"`
	CategoryID string       `json:"categoryId"`
	Region     string       `json:"region,omitempty"`
	Location   *Coordinates `json:"location"`
	Status     Status       `json:"status"`
	Important  bool         `json:"important"`
	CreatedAt  time.Time    `json:"createdAt"`
}

// DuplicateGroup is one cluster of reports describing the same issue.
type DuplicateGroup struct {
	Primary Report `json:"primaryIssue"`
	// Related is never empty and keeps input order.
	Related  []Report    `json:"relatedIssues"`
	Count    int         `json:"count"`
	Category string      `json:"category"`
	Centroid Coordinates `json:"location"`
}

// MemberIDs returns the primary ID followed by the related IDs.
func (g *DuplicateGroup) MemberIDs() []string {
	ids := make([]string, 0, g.Count)
	ids = append(ids, g.Primary.ID)
	for i := range g.Related {
		ids = append(ids, g.Related[i].ID)
	}
	return ids
}

// Result is the outcome of one detection pass.
type Result struct {
	Groups []DuplicateGroup `json:"groups"`

	// TotalGroups counts groups found before the cap was applied.
	TotalGroups int `json:"totalGroups"`

	// Scanned is the input length; Active the number that took part.
	Scanned  int `json:"scanned"`
	Active   int `json:"active"`
	Inactive int `json:"inactive"`

	Malformed []*MalformedReportError `json:"-"`

	// Partial is set when the pass stopped early on cancellation.
	Partial    bool      `json:"partial"`
	ComputedAt time.Time `json:"computedAt"`
}

// Empty reports whether the pass found no duplicates. An empty result is a
// healthy outcome; failures are returned as errors.
func (r *Result) Empty() bool {
	return len(r.Groups) == 0
}

// Skipped returns the number of malformed reports left out of the pass.
func (r *Result) Skipped() int {
	return len(r.Malformed)
}

// Flag records an operator marking a report as important after reviewing a group.
type Flag struct {
	ReportID  string    `json:"reportId"`
	PrimaryID string    `json:"primaryId,omitempty"`
	Region    string    `json:"region,omitempty"`
	FlaggedBy string    `json:"flaggedBy"`
	Note      string    `json:"note,omitempty"`
	FlaggedAt time.Time `json:"flaggedAt"`
}

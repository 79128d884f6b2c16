// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

package events

import "time"

// Topics.
const (
	TopicDuplicatesDetected = "civic.duplicates.detected"
	TopicReportFlagged      = "civic.reports.flagged"
)

// DuplicatesDetected summarises one detection run.
type DuplicatesDetected struct {
	Region      string    `json:"region"`
	Groups      int       `json:"groups"`
	TotalGroups int       `json:"totalGroups"`
	Scanned     int       `json:"scanned"`
	Active      int       `json:"active"`
	Skipped     int       `json:"skipped"`
	Partial     bool      `json:"partial"`
	PrimaryIDs  []string  `json:"primaryIds"`
	Trigger     string    `json:"trigger"` // "api" or "scanner"
	DetectedAt  time.Time `json:"detectedAt"`
}

// ReportFlagged records an operator marking a report important.
type ReportFlagged struct {
	ReportID  string    `json:"reportId"`
	PrimaryID string    `json:"primaryId,omitempty"`
	Region    string    `json:"region,omitempty"`
	FlaggedBy string    `json:"flaggedBy"`
	FlaggedAt time.Time `json:"flaggedAt"`
}

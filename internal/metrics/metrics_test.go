// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordDetection(t *testing.T) {
	region := "metrics-test-detection"
	before := testutil.ToFloat64(DetectionRuns.WithLabelValues(region, OutcomeOK))

	RecordDetection(region, OutcomeOK, 3*time.Millisecond, 120, 2, 7)

	if got := testutil.ToFloat64(DetectionRuns.WithLabelValues(region, OutcomeOK)); got != before+1 {
		t.Errorf("runs = %v, want %v", got, before+1)
	}
	if got := testutil.ToFloat64(DetectionGroups.WithLabelValues(region)); got != 7 {
		t.Errorf("groups gauge = %v, want 7", got)
	}
	if got := testutil.ToFloat64(DetectionReportsScanned.WithLabelValues(region)); got != 120 {
		t.Errorf("scanned = %v, want 120", got)
	}
	if got := testutil.ToFloat64(DetectionReportsSkipped.WithLabelValues(region)); got != 2 {
		t.Errorf("skipped = %v, want 2", got)
	}

	RecordDetection(region, OutcomeError, 0, 0, 0, 0)
	if got := testutil.ToFloat64(DetectionGroups.WithLabelValues(region)); got != 7 {
		t.Errorf("failed run should not reset the groups gauge, got %v", got)
	}
}

func TestRegionLabel(t *testing.T) {
	if RegionLabel("") != "all" || RegionLabel("north") != "north" {
		t.Error("unexpected region labels")
	}
}

func TestRecordBreakerTransition(t *testing.T) {
	name := "metrics-test-breaker"
	tests := []struct {
		from, to string
		want     float64
	}{
		{"closed", "open", 2},
		{"open", "half-open", 1},
		{"half-open", "closed", 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s->%s", tt.from, tt.to), func(t *testing.T) {
			RecordBreakerTransition(name, tt.from, tt.to)
			if got := testutil.ToFloat64(CircuitBreakerState.WithLabelValues(name)); got != tt.want {
				t.Errorf("state = %v, want %v", got, tt.want)
			}
			if got := testutil.ToFloat64(CircuitBreakerTransitions.WithLabelValues(name, tt.from, tt.to)); got < 1 {
				t.Errorf("transition not counted")
			}
		})
	}
}

func TestRecordSnapshotCache(t *testing.T) {
	hits := testutil.ToFloat64(SnapshotCacheHits)
	misses := testutil.ToFloat64(SnapshotCacheMisses)

	RecordSnapshotCache(true)
	RecordSnapshotCache(false)
	RecordSnapshotCache(false)

	if got := testutil.ToFloat64(SnapshotCacheHits); got != hits+1 {
		t.Errorf("hits = %v, want %v", got, hits+1)
	}
	if got := testutil.ToFloat64(SnapshotCacheMisses); got != misses+2 {
		t.Errorf("misses = %v, want %v", got, misses+2)
	}
}

func TestRecordEventHandled(t *testing.T) {
	topic := "metrics-test-topic"
	RecordEventHandled(topic, nil)
	RecordEventHandled(topic, errors.New("decode failed"))

	if got := testutil.ToFloat64(EventsHandled.WithLabelValues(topic, "ok")); got != 1 {
		t.Errorf("ok = %v", got)
	}
	if got := testutil.ToFloat64(EventsHandled.WithLabelValues(topic, "error")); got != 1 {
		t.Errorf("error = %v", got)
	}
}

func TestErrorOutcome(t *testing.T) {
	partial := errors.New("partial")
	if ErrorOutcome(nil, partial) != OutcomeOK {
		t.Error("nil error should be ok")
	}
	if ErrorOutcome(fmt.Errorf("wrapped: %w", partial), partial) != OutcomePartial {
		t.Error("wrapped partial should be partial")
	}
	if ErrorOutcome(errors.New("boom"), partial) != OutcomeError {
		t.Error("other errors should be error")
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests); got != before+1 {
		t.Errorf("in flight = %v, want %v", got, before+1)
	}
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != before {
		t.Errorf("in flight = %v, want %v", got, before)
	}
}

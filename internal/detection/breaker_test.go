// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

package detection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

func TestBreakerSource_WrapsFailures(t *testing.T) {
	t.Parallel()

	boom := errors.New("timeout")
	b := NewBreakerSource(&countingSource{err: boom}, BreakerConfig{Name: "test-wrap", MinRequests: 100, FailureRatio: 1})

	_, err := b.FetchActiveReports(context.Background(), "")
	if !errors.Is(err, ErrSourceUnavailable) || !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if b.State() != "closed" {
		t.Errorf("state = %s", b.State())
	}
}

func TestBreakerSource_OpensAfterFailures(t *testing.T) {
	t.Parallel()

	src := &countingSource{err: errors.New("down")}
	b := NewBreakerSource(src, BreakerConfig{
		Name:         "test-open",
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Hour,
		MinRequests:  3,
		FailureRatio: 0.5,
	})

	for i := 0; i < 3; i++ {
		_, _ = b.FetchActiveReports(context.Background(), "")
	}
	if b.State() != "open" {
		t.Fatalf("state = %s, want open", b.State())
	}

	_, err := b.FetchActiveReports(context.Background(), "")
	if !errors.Is(err, ErrSourceUnavailable) || !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("err = %v", err)
	}
	if got := src.calls.Load(); got != 3 {
		t.Errorf("source called %d times, want 3", got)
	}
}

func TestBreakerSource_CancellationDoesNotTrip(t *testing.T) {
	t.Parallel()

	src := &countingSource{err: context.Canceled}
	b := NewBreakerSource(src, BreakerConfig{Name: "test-cancel", MinRequests: 2, FailureRatio: 0.5, Timeout: time.Hour})

	for i := 0; i < 5; i++ {
		_, _ = b.FetchActiveReports(context.Background(), "")
	}
	if b.State() != "closed" {
		t.Errorf("state = %s, want closed", b.State())
	}
}

func TestBreakerSource_PassesThrough(t *testing.T) {
	t.Parallel()

	src := &countingSource{reports: map[string][]Report{"north": pairFixture()}}
	b := NewBreakerSource(src, DefaultBreakerConfig())
	got, err := b.FetchActiveReports(context.Background(), "north")
	if err != nil {
		t.Fatalf("FetchActiveReports: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("got %d reports", len(got))
	}
}

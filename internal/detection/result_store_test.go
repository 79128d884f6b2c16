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
)

func openTestResultStore(t *testing.T) *BadgerResultStore {
	t.Helper()
	s, err := OpenBadgerResultStore("", time.Hour)
	if err != nil {
		t.Fatalf("OpenBadgerResultStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBadgerResultStore_LatestAndHistory(t *testing.T) {
	t.Parallel()

	s := openTestResultStore(t)
	ctx := context.Background()

	if _, err := s.Latest(ctx, "north"); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("empty store err = %v", err)
	}

	d := newTestDetector(t, nil)
	res := detect(t, d, pairFixture())

	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		snap := &ScanSnapshot{
			Region:  "north",
			Trigger: TriggerScanner,
			Result:  res,
			Skipped: i,
			SavedAt: t0.Add(time.Duration(i) * time.Minute),
		}
		if err := s.Save(ctx, snap); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	if err := s.Save(ctx, &ScanSnapshot{Region: "", Trigger: TriggerAPI, Result: res}); err != nil {
		t.Fatalf("Save all regions: %v", err)
	}

	latest, err := s.Latest(ctx, "north")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest.Skipped != 2 || !latest.SavedAt.Equal(t0.Add(2*time.Minute)) {
		t.Errorf("latest = %+v", latest)
	}
	if len(latest.Result.Groups) != 1 || latest.Result.Groups[0].Primary.ID != "a1" {
		t.Errorf("decoded groups = %+v", latest.Result.Groups)
	}

	history, err := s.History(ctx, "north", 2)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 || history[0].Skipped != 2 || history[1].Skipped != 1 {
		t.Errorf("history = %+v", history)
	}

	all, err := s.Latest(ctx, "")
	if err != nil || all.Trigger != TriggerAPI || all.SavedAt.IsZero() {
		t.Errorf("all-regions latest = %+v, err %v", all, err)
	}

	regions, err := s.Regions(ctx)
	if err != nil {
		t.Fatalf("Regions: %v", err)
	}
	if len(regions) != 2 || regions[0] != "" || regions[1] != "north" {
		t.Errorf("regions = %q", regions)
	}
}

func TestBadgerResultStore_RunGC(t *testing.T) {
	t.Parallel()

	s := openTestResultStore(t)
	if err := s.RunGC(context.Background()); err != nil {
		t.Errorf("RunGC on in-memory store: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.RunGC(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("RunGC after cancel = %v, want context.Canceled", err)
	}
}

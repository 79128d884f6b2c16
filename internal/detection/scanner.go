// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

package detection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/civicpulse/internal/logging"
)

// defaultScanConcurrency bounds the regions scanned at once.
const defaultScanConcurrency = 4

// ScannerConfig configures the background scanner.
type ScannerConfig struct {
	// Regions to scan. An empty list scans all regions as one pass.
	Regions     []string
	Interval    time.Duration
	Concurrency int
}

// Scanner periodically runs detection for a set of regions and stores the
// results through the service's ResultStore.
type Scanner struct {
	svc *Service
	cfg ScannerConfig
}

// NewScanner creates a scanner. Interval must be positive.
func NewScanner(svc *Service, cfg ScannerConfig) (*Scanner, error) {
	if svc == nil {
		return nil, errors.New("scanner: service is required")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("scanner: interval must be positive, got %s", cfg.Interval)
	}
	if len(cfg.Regions) == 0 {
		cfg.Regions = []string{""}
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultScanConcurrency
	}
	return &Scanner{svc: svc, cfg: cfg}, nil
}

// Serve scans once immediately and then on every tick until ctx ends.
func (s *Scanner) Serve(ctx context.Context) error {
	logging.Info().
		Strs("regions", s.cfg.Regions).
		Dur("interval", s.cfg.Interval).
		Msg("Duplicate scanner started")

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := s.ScanAll(ctx); err != nil && ctx.Err() == nil {
			logging.Warn().Err(err).Msg("Duplicate scan finished with errors")
		}
		select {
		case <-ctx.Done():
			logging.Info().Msg("Duplicate scanner stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ScanAll runs one pass over every configured region. A failing region does
// not stop the others; all failures are joined into the returned error.
func (s *Scanner) ScanAll(ctx context.Context) error {
	errs := make([]error, len(s.cfg.Regions))

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, region := range s.cfg.Regions {
		g.Go(func() error {
			rctx := logging.ContextWithNewCorrelationID(ctx)
			if _, err := s.svc.run(rctx, region, TriggerScanner); err != nil {
				errs[i] = fmt.Errorf("region %q: %w", region, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// String names the scanner in supervisor logs.
func (s *Scanner) String() string {
	return "duplicate-scanner"
}

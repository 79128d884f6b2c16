// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

package services

import (
	"context"
	"time"

	"github.com/tomtom215/civicpulse/internal/logging"
)

// PeriodicFunc is one run of a maintenance job.
type PeriodicFunc func(ctx context.Context) error

// PeriodicService runs a job on a fixed interval. A failed run is logged
// and retried on the next tick; only ctx ends the service.
//
//	gc := services.NewPeriodicService("result-store-gc", 10*time.Minute, results.RunGC)
//	tree.AddDataService(gc)
type PeriodicService struct {
	name     string
	interval time.Duration
	run      PeriodicFunc
}

// NewPeriodicService creates a periodic job. A non-positive interval
// defaults to five minutes.
func NewPeriodicService(name string, interval time.Duration, run PeriodicFunc) *PeriodicService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &PeriodicService{name: name, interval: interval, run: run}
}

// Serve implements suture.Service.
func (p *PeriodicService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			err := p.run(ctx)
			switch {
			case err == nil:
				logging.Debug().Str("job", p.name).Dur("duration", time.Since(start)).Msg("Periodic job finished")
			case ctx.Err() != nil:
				return ctx.Err()
			default:
				logging.Warn().Err(err).Str("job", p.name).Msg("Periodic job failed")
			}
		}
	}
}

// String implements fmt.Stringer for suture's logs.
func (p *PeriodicService) String() string {
	return p.name
}

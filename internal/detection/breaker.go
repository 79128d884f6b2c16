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

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/civicpulse/internal/logging"
	"github.com/tomtom215/civicpulse/internal/metrics"
)

// BreakerConfig tunes the circuit breaker in front of a report source.
type BreakerConfig struct {
	Name         string
	MaxRequests  uint32        // probes allowed while half-open
	Interval     time.Duration // closed-state count reset period
	Timeout      time.Duration // open duration before probing
	MinRequests  uint32        // requests needed before the ratio is considered
	FailureRatio float64
}

// DefaultBreakerConfig trips at 60% failures over at least 10 fetches and
// probes again after 30 seconds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:         "report-source",
		MaxRequests:  3,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
		MinRequests:  10,
		FailureRatio: 0.6,
	}
}

// BreakerSource stops hammering a failing report source. Rejected and failed
// fetches are returned wrapped in ErrSourceUnavailable.
type BreakerSource struct {
	next ReportSource
	cb   *gobreaker.CircuitBreaker[[]Report]
	name string
}

// NewBreakerSource wraps next.
func NewBreakerSource(next ReportSource, cfg BreakerConfig) *BreakerSource {
	if cfg.Name == "" {
		cfg.Name = DefaultBreakerConfig().Name
	}
	metrics.CircuitBreakerState.WithLabelValues(cfg.Name).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]Report](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			if ratio >= cfg.FailureRatio {
				logging.Warn().
					Str("breaker", cfg.Name).
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", ratio*100).
					Msg("Opening report source circuit")
				return true
			}
			return false
		},
		// A caller giving up is not a source failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state transition")
			metrics.RecordBreakerTransition(name, from.String(), to.String())
		},
	})

	return &BreakerSource{next: next, cb: cb, name: cfg.Name}
}

// FetchActiveReports implements ReportSource.
func (b *BreakerSource) FetchActiveReports(ctx context.Context, region string) ([]Report, error) {
	reports, err := b.cb.Execute(func() ([]Report, error) {
		return b.next.FetchActiveReports(ctx, region)
	})
	if err == nil {
		return reports, nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: circuit %s: %w", ErrSourceUnavailable, b.name, err)
	}
	if errors.Is(err, ErrSourceUnavailable) {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
}

// State returns the breaker state name: closed, half-open or open.
func (b *BreakerSource) State() string {
	return b.cb.State().String()
}

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

	"github.com/tomtom215/civicpulse/internal/events"
	"github.com/tomtom215/civicpulse/internal/logging"
	"github.com/tomtom215/civicpulse/internal/metrics"
)

// Triggers recorded on events and stored scans.
const (
	TriggerAPI     = "api"
	TriggerScanner = "scanner"
)

// ServiceDeps wires a Service. Detector and Source are required.
type ServiceDeps struct {
	Detector *ClusterDetector
	Source   ReportSource

	// Flagger and Writer are nil for read-only backends.
	Flagger Flagger
	Writer  ReportWriter

	// Cache, when set, is invalidated after every write.
	Cache *CachedSource

	Publisher events.Publisher
	Results   ResultStore

	// Backend labels fetch metrics, e.g. "duckdb" or "mongo".
	Backend string

	// DetectTimeout bounds one detection pass; zero means no limit.
	DetectTimeout time.Duration
}

// Service is the calling layer around the detector: it fetches snapshots,
// runs detection, records the outcome and handles the flagging workflow.
type Service struct {
	deps ServiceDeps
}

// NewService validates deps and returns a Service.
func NewService(deps ServiceDeps) (*Service, error) {
	if deps.Detector == nil {
		return nil, errors.New("detection service: detector is required")
	}
	if deps.Source == nil {
		return nil, errors.New("detection service: report source is required")
	}
	if deps.Publisher == nil {
		deps.Publisher = events.NopPublisher{}
	}
	if deps.Backend == "" {
		deps.Backend = "unknown"
	}
	return &Service{deps: deps}, nil
}

// FindDuplicates runs detection over the active reports of region.
//
// A failed fetch returns an error matching ErrSourceUnavailable and no
// result. A pass cut short by DetectTimeout or ctx returns the partial
// result together with an error matching ErrPartialResult.
func (s *Service) FindDuplicates(ctx context.Context, region string) (*Result, error) {
	return s.run(ctx, region, TriggerAPI)
}

func (s *Service) run(ctx context.Context, region, trigger string) (*Result, error) {
	start := time.Now()
	reports, err := s.deps.Source.FetchActiveReports(ctx, region)
	metrics.RecordSourceFetch(s.deps.Backend, time.Since(start), err)
	if err != nil {
		metrics.RecordDetection(region, metrics.OutcomeError, 0, 0, 0, 0)
		logging.Ctx(ctx).Error().Err(err).Str("region", region).Msg("Failed to fetch report snapshot")
		if !errors.Is(err, ErrSourceUnavailable) {
			err = fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
		}
		return nil, fmt.Errorf("fetch reports for region %q: %w", region, err)
	}

	dctx := ctx
	if s.deps.DetectTimeout > 0 {
		var cancel context.CancelFunc
		dctx, cancel = context.WithTimeout(ctx, s.deps.DetectTimeout)
		defer cancel()
	}

	detectStart := time.Now()
	res, derr := s.deps.Detector.Detect(dctx, reports)
	elapsed := time.Since(detectStart)

	outcome := metrics.ErrorOutcome(derr, ErrPartialResult)
	if outcome == metrics.OutcomeOK && res.Empty() {
		outcome = metrics.OutcomeEmpty
	}
	metrics.RecordDetection(region, outcome, elapsed, res.Scanned, res.Skipped(), len(res.Groups))

	logging.Ctx(ctx).Info().
		Str("region", metrics.RegionLabel(region)).
		Str("trigger", trigger).
		Str("outcome", outcome).
		Int("scanned", res.Scanned).
		Int("active", res.Active).
		Int("skipped", res.Skipped()).
		Int("groups", len(res.Groups)).
		Dur("duration", elapsed).
		Msg("Duplicate detection finished")

	s.record(ctx, region, trigger, res)
	return res, derr
}

// record publishes the run and stores it. Failures here never fail the run.
func (s *Service) record(ctx context.Context, region, trigger string, res *Result) {
	primaries := make([]string, len(res.Groups))
	for i := range res.Groups {
		primaries[i] = res.Groups[i].Primary.ID
	}
	evt := events.DuplicatesDetected{
		Region:      region,
		Groups:      len(res.Groups),
		TotalGroups: res.TotalGroups,
		Scanned:     res.Scanned,
		Active:      res.Active,
		Skipped:     res.Skipped(),
		Partial:     res.Partial,
		PrimaryIDs:  primaries,
		Trigger:     trigger,
		DetectedAt:  res.ComputedAt,
	}
	if err := s.deps.Publisher.Publish(ctx, events.TopicDuplicatesDetected, evt); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to publish duplicates event")
	}

	if s.deps.Results == nil {
		return
	}
	snap := &ScanSnapshot{
		Region:  region,
		Trigger: trigger,
		Result:  res,
		Skipped: res.Skipped(),
		SavedAt: res.ComputedAt,
	}
	if err := s.deps.Results.Save(ctx, snap); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("region", region).Msg("Failed to store scan result")
	}
}

// LatestScan returns the most recently stored scan of region.
func (s *Service) LatestScan(ctx context.Context, region string) (*ScanSnapshot, error) {
	if s.deps.Results == nil {
		return nil, ErrNoSnapshot
	}
	return s.deps.Results.Latest(ctx, region)
}

// ScanHistory returns up to limit stored scans of region, newest first.
// It returns ErrNoSnapshot when the result store keeps no history.
func (s *Service) ScanHistory(ctx context.Context, region string, limit int) ([]ScanSnapshot, error) {
	hs, ok := s.deps.Results.(HistoryStore)
	if !ok {
		return nil, ErrNoSnapshot
	}
	return hs.History(ctx, region, limit)
}

// FlagImportant marks a report important after an operator reviewed its group.
func (s *Service) FlagImportant(ctx context.Context, flag Flag) error {
	if s.deps.Flagger == nil {
		return ErrReadOnlySource
	}
	if flag.FlaggedAt.IsZero() {
		flag.FlaggedAt = time.Now().UTC()
	}
	if err := s.deps.Flagger.MarkImportant(ctx, flag); err != nil {
		return fmt.Errorf("flag report %s: %w", flag.ReportID, err)
	}
	s.invalidate()
	metrics.RecordReportFlagged(flag.Region)

	evt := events.ReportFlagged{
		ReportID:  flag.ReportID,
		PrimaryID: flag.PrimaryID,
		Region:    flag.Region,
		FlaggedBy: flag.FlaggedBy,
		FlaggedAt: flag.FlaggedAt,
	}
	if err := s.deps.Publisher.Publish(ctx, events.TopicReportFlagged, evt); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to publish flag event")
	}
	return nil
}

// SubmitReport stores a new report. Reports are create-only here, so an
// existing ID fails with ErrReportExists.
func (s *Service) SubmitReport(ctx context.Context, r *Report) error {
	if s.deps.Writer == nil {
		return ErrReadOnlySource
	}
	if err := s.deps.Writer.CreateReport(ctx, r); err != nil {
		return err
	}
	s.invalidate()
	return nil
}

func (s *Service) invalidate() {
	if s.deps.Cache != nil {
		s.deps.Cache.Invalidate()
	}
}

// Detector returns the configured detector.
func (s *Service) Detector() *ClusterDetector {
	return s.deps.Detector
}

// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/tomtom215/civicpulse/internal/api"
	"github.com/tomtom215/civicpulse/internal/config"
	"github.com/tomtom215/civicpulse/internal/detection"
	"github.com/tomtom215/civicpulse/internal/events"
	"github.com/tomtom215/civicpulse/internal/logging"
	"github.com/tomtom215/civicpulse/internal/supervisor"
	"github.com/tomtom215/civicpulse/internal/supervisor/services"
)

const (
	resultStoreGCInterval = 10 * time.Minute
	readinessTimeout      = 3 * time.Second
)

//nolint:gocyclo // Main initialization function with sequential setup steps
func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Str("backend", cfg.Source.Backend).
		Str("auth_mode", cfg.Security.AuthMode).
		Str("environment", cfg.Server.Environment).
		Float64("radius_m", cfg.Detection.RadiusMeters).
		Int("max_groups", cfg.Detection.MaxGroups).
		Msg("Starting CivicPulse with supervisor tree")

	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Msg("CORS_ORIGINS allows any origin; restrict it before exposing the API")
	}

	if err := run(cfg); err != nil {
		logging.Error().Err(err).Msg("Server exited with error")
		os.Exit(1)
	}
	logging.Info().Msg("Server stopped")
}

// run wires every component and blocks until shutdown. Deferred closes run
// after the supervisor tree has stopped.
func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend, err := openReportBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("report backend: %w", err)
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		if err := backend.close(closeCtx); err != nil {
			logging.Error().Err(err).Str("backend", backend.name).Msg("Error closing report backend")
		}
	}()

	source, snapshotCache := wrapSource(cfg, backend.source, backend.name)
	if snapshotCache != nil {
		defer snapshotCache.Close()
	}

	results, err := detection.OpenBadgerResultStore(cfg.Detection.ResultStorePath, cfg.Detection.HistoryRetention)
	if err != nil {
		return fmt.Errorf("result store: %w", err)
	}
	defer func() {
		if err := results.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing result store")
		}
	}()

	eventLogger := watermill.NewSlogLogger(logging.NewSlogLogger())
	bus := events.NewBus(eventLogger)
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()

	detector, err := detection.NewClusterDetector(cfg.Detection.DetectorConfig())
	if err != nil {
		return err
	}

	svc, err := detection.NewService(detection.ServiceDeps{
		Detector:      detector,
		Source:        source,
		Flagger:       backend.flagger,
		Writer:        backend.writer,
		Cache:         snapshotCache,
		Publisher:     bus,
		Results:       results,
		Backend:       backend.name,
		DetectTimeout: cfg.Detection.Timeout,
	})
	if err != nil {
		return err
	}

	authc, err := initAuth(ctx, cfg)
	if err != nil {
		return err
	}
	defer authc.enforcer.Close()

	handler, err := api.NewHandler(api.HandlerDeps{
		Service:      svc,
		JWT:          authc.jwt,
		Admin:        authc.admin,
		Ready:        map[string]api.Pinger{"reports": backend.pinger},
		ReadyTimeout: readinessTimeout,
	})
	if err != nil {
		return err
	}
	router := api.NewRouter(handler, authc.authn, authc.authz, cfg.Security.CORSOrigins)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return fmt.Errorf("supervisor tree: %w", err)
	}

	tree.AddDataService(services.NewPeriodicService("result-store-gc", resultStoreGCInterval, results.RunGC))
	tree.AddDetectionService(events.NewRouter(bus, eventLogger, events.AuditHandlers(nil)...))

	if cfg.Detection.ScanEnabled {
		scanner, err := detection.NewScanner(svc, cfg.Detection.ScannerConfig())
		if err != nil {
			return fmt.Errorf("scanner: %w", err)
		}
		tree.AddDetectionService(scanner)
		logging.Info().
			Dur("interval", cfg.Detection.ScanInterval).
			Strs("regions", cfg.Detection.ScanRegions).
			Msg("Background duplicate scanner enabled")
	}

	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		sig := <-sigChan
		logging.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)

	// Wait for the supervisor to exit; it exits when ctx is cancelled.
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor tree: %w", err)
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, s := range unstopped {
			logging.Warn().Str("service", s.Name).Msg("Service failed to stop")
		}
	}
	return nil
}

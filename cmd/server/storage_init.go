// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2" // DuckDB driver

	"github.com/tomtom215/civicpulse/internal/api"
	"github.com/tomtom215/civicpulse/internal/config"
	"github.com/tomtom215/civicpulse/internal/detection"
	"github.com/tomtom215/civicpulse/internal/logging"
)

// reportBackend is the configured report store and the capabilities it offers.
type reportBackend struct {
	name    string
	source  detection.ReportSource
	writer  detection.ReportWriter
	flagger detection.Flagger
	pinger  api.Pinger
	close   func(ctx context.Context) error
}

// duckDBConnString builds the DuckDB DSN. Extension autoloading is off; the
// report schema needs none.
func duckDBConnString(cfg *config.DatabaseConfig) string {
	params := []string{
		"access_mode=read_write",
		"autoinstall_known_extensions=false",
		"autoload_known_extensions=false",
	}
	if cfg.MaxMemory != "" {
		params = append(params, "max_memory="+cfg.MaxMemory)
	}
	if cfg.Threads > 0 {
		params = append(params, fmt.Sprintf("threads=%d", cfg.Threads))
	}
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	return path + "?" + strings.Join(params, "&")
}

func openReportBackend(ctx context.Context, cfg *config.Config) (*reportBackend, error) {
	switch cfg.Source.Backend {
	case config.BackendMongo:
		src, err := detection.ConnectMongoSource(ctx, detection.MongoConfig{
			URI:        cfg.Source.Mongo.URI,
			Database:   cfg.Source.Mongo.Database,
			Collection: cfg.Source.Mongo.Collection,
			Timeout:    cfg.Source.Mongo.Timeout,
		})
		if err != nil {
			return nil, err
		}
		logging.Info().
			Str("database", cfg.Source.Mongo.Database).
			Str("collection", cfg.Source.Mongo.Collection).
			Msg("MongoDB report source connected (read-only, flagging enabled)")
		return &reportBackend{
			name:    config.BackendMongo,
			source:  src,
			flagger: src,
			pinger:  src,
			close:   src.Close,
		}, nil

	default:
		db, err := sql.Open("duckdb", duckDBConnString(&cfg.Database))
		if err != nil {
			return nil, fmt.Errorf("failed to open duckdb: %w", err)
		}
		store := detection.NewDuckDBStore(db)
		if err := store.InitSchema(ctx); err != nil {
			if closeErr := db.Close(); closeErr != nil {
				logging.Error().Err(closeErr).Msg("Error closing database")
			}
			return nil, err
		}
		logging.Info().Str("db_path", cfg.Database.Path).Msg("DuckDB report store initialized")
		return &reportBackend{
			name:    config.BackendDuckDB,
			source:  store,
			writer:  store,
			flagger: store,
			pinger:  store,
			close:   func(context.Context) error { return db.Close() },
		}, nil
	}
}

// wrapSource layers the circuit breaker and the snapshot cache over the raw
// source. The cache sits outside the breaker so cache hits never count as
// breaker requests.
func wrapSource(cfg *config.Config, raw detection.ReportSource, backend string) (detection.ReportSource, *detection.CachedSource) {
	src := raw
	if cfg.Breaker.Enabled {
		src = detection.NewBreakerSource(src, cfg.Breaker.ToDetection(backend+"-source"))
		logging.Info().
			Uint32("min_requests", cfg.Breaker.MinRequests).
			Float64("failure_ratio", cfg.Breaker.FailureRatio).
			Dur("open_timeout", cfg.Breaker.Timeout).
			Msg("Report source circuit breaker enabled")
	}

	if cfg.Detection.SnapshotCacheTTL <= 0 {
		return src, nil
	}
	cached := detection.NewCachedSource(src, cfg.Detection.SnapshotCacheTTL)
	logging.Info().Dur("ttl", cfg.Detection.SnapshotCacheTTL).Msg("Report snapshot cache enabled")
	return cached, cached
}

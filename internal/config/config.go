// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

package config

import (
	"time"

	"github.com/tomtom215/civicpulse/internal/detection"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Source    SourceConfig    `koanf:"source"`
	Detection DetectionConfig `koanf:"detection"`
	Breaker   BreakerConfig   `koanf:"breaker"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // development, staging or production
}

// DatabaseConfig holds DuckDB settings
type DatabaseConfig struct {
	Path      string `koanf:"path"` // empty means in-memory
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = DuckDB default
}

// Report backends.
const (
	BackendDuckDB = "duckdb"
	BackendMongo  = "mongo"
)

// SourceConfig selects where report snapshots are read from.
//
// Environment Variables:
//   - SOURCE_BACKEND: duckdb or mongo (default: duckdb)
//   - MONGO_URI, MONGO_DATABASE, MONGO_COLLECTION, MONGO_TIMEOUT
type SourceConfig struct {
	Backend string      `koanf:"backend"`
	Mongo   MongoConfig `koanf:"mongo"`
}

// MongoConfig holds settings for reading reports from an existing MongoDB
// report collection.
type MongoConfig struct {
	URI        string        `koanf:"uri"`
	Database   string        `koanf:"database"`
	Collection string        `koanf:"collection"`
	Timeout    time.Duration `koanf:"timeout"`
}

// DetectionConfig holds duplicate detection settings.
//
// Environment Variables:
//   - DETECTION_RADIUS_METERS: grouping radius (default: 500)
//   - DETECTION_MAX_GROUPS: cap on returned groups (default: 50)
//   - DETECTION_SPATIAL_INDEX: use the grid candidate index (default: true)
//   - DETECTION_TIMEOUT: budget for one detection pass (default: 10s)
//   - DETECTION_SNAPSHOT_CACHE_TTL: snapshot cache TTL, 0 disables (default: 15s)
//   - DETECTION_SCAN_ENABLED, DETECTION_SCAN_INTERVAL, DETECTION_SCAN_REGIONS
//   - DETECTION_RESULT_STORE_PATH: BadgerDB directory, empty for in-memory
//   - DETECTION_HISTORY_RETENTION: how long past scans are kept (default: 168h)
type DetectionConfig struct {
	RadiusMeters     float64       `koanf:"radius_meters"`
	MaxGroups        int           `koanf:"max_groups"`
	SpatialIndex     bool          `koanf:"spatial_index"`
	Timeout          time.Duration `koanf:"timeout"`
	SnapshotCacheTTL time.Duration `koanf:"snapshot_cache_ttl"`

	ScanEnabled     bool          `koanf:"scan_enabled"`
	ScanInterval    time.Duration `koanf:"scan_interval"`
	ScanRegions     []string      `koanf:"scan_regions"`
	ScanConcurrency int           `koanf:"scan_concurrency"`

	ResultStorePath  string        `koanf:"result_store_path"`
	HistoryRetention time.Duration `koanf:"history_retention"`
}

// DetectorConfig converts the section into the detector's configuration.
func (d DetectionConfig) DetectorConfig() detection.DetectorConfig {
	return detection.DetectorConfig{
		RadiusMeters: d.RadiusMeters,
		MaxGroups:    d.MaxGroups,
		SpatialIndex: d.SpatialIndex,
	}
}

// ScannerConfig converts the scan settings into the scanner's configuration.
func (d DetectionConfig) ScannerConfig() detection.ScannerConfig {
	return detection.ScannerConfig{
		Regions:     d.ScanRegions,
		Interval:    d.ScanInterval,
		Concurrency: d.ScanConcurrency,
	}
}

// BreakerConfig tunes the circuit breaker around the report source.
type BreakerConfig struct {
	Enabled      bool          `koanf:"enabled"`
	MaxRequests  uint32        `koanf:"max_requests"`
	Interval     time.Duration `koanf:"interval"`
	Timeout      time.Duration `koanf:"timeout"`
	MinRequests  uint32        `koanf:"min_requests"`
	FailureRatio float64       `koanf:"failure_ratio"`
}

// ToDetection converts the section into a detection.BreakerConfig.
func (b BreakerConfig) ToDetection(name string) detection.BreakerConfig {
	return detection.BreakerConfig{
		Name:         name,
		MaxRequests:  b.MaxRequests,
		Interval:     b.Interval,
		Timeout:      b.Timeout,
		MinRequests:  b.MinRequests,
		FailureRatio: b.FailureRatio,
	}
}

// SecurityConfig holds authentication and authorization settings
type SecurityConfig struct {
	AuthMode       string        `koanf:"auth_mode"` // none or jwt
	JWTSecret      string        `koanf:"jwt_secret"`
	SessionTimeout time.Duration `koanf:"session_timeout"`
	AdminUsername  string        `koanf:"admin_username"`
	AdminPassword  string        `koanf:"admin_password"`
	CORSOrigins    []string      `koanf:"cors_origins"`

	// DefaultRole is granted to tokens that carry no role.
	DefaultRole string `koanf:"default_role"`
}

// LoggingConfig holds logging settings for zerolog.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false - include caller file:line (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load reads configuration from defaults, the optional config file and the
// environment, then validates it.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

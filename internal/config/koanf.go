// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/civicpulse/config.yaml",
	"/etc/civicpulse/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			Timeout:         30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			Environment:     "development",
		},
		Database: DatabaseConfig{
			Path:      "/data/civicpulse.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
		},
		Source: SourceConfig{
			Backend: BackendDuckDB,
			Mongo: MongoConfig{
				URI:        "",
				Database:   "civic",
				Collection: "reports",
				Timeout:    10 * time.Second,
			},
		},
		Detection: DetectionConfig{
			RadiusMeters:     500,
			MaxGroups:        50,
			SpatialIndex:     true,
			Timeout:          10 * time.Second,
			SnapshotCacheTTL: 15 * time.Second,
			ScanEnabled:      false,
			ScanInterval:     5 * time.Minute,
			ScanRegions:      []string{},
			ScanConcurrency:  4,
			ResultStorePath:  "/data/scans",
			HistoryRetention: 7 * 24 * time.Hour,
		},
		Breaker: BreakerConfig{
			Enabled:      true,
			MaxRequests:  3,
			Interval:     time.Minute,
			Timeout:      30 * time.Second,
			MinRequests:  10,
			FailureRatio: 0.6,
		},
		Security: SecurityConfig{
			AuthMode:       "jwt",
			SessionTimeout: 24 * time.Hour,
			CORSOrigins:    []string{"*"},
			DefaultRole:    "viewer",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// DETECTION_RADIUS_METERS -> detection.radius_meters
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns the first existing config file, or "" if none.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma-separated strings when set via env.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"detection.scan_regions",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			// Unset, or already a slice from YAML or defaults.
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lower-cased) to koanf paths.
var envMappings = map[string]string{
	"http_host":        "server.host",
	"http_port":        "server.port",
	"http_timeout":     "server.timeout",
	"shutdown_timeout": "server.shutdown_timeout",
	"environment":      "server.environment",

	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	"source_backend":   "source.backend",
	"mongo_uri":        "source.mongo.uri",
	"mongo_database":   "source.mongo.database",
	"mongo_collection": "source.mongo.collection",
	"mongo_timeout":    "source.mongo.timeout",

	"detection_radius_meters":      "detection.radius_meters",
	"detection_max_groups":         "detection.max_groups",
	"detection_spatial_index":      "detection.spatial_index",
	"detection_timeout":            "detection.timeout",
	"detection_snapshot_cache_ttl": "detection.snapshot_cache_ttl",
	"detection_scan_enabled":       "detection.scan_enabled",
	"detection_scan_interval":      "detection.scan_interval",
	"detection_scan_regions":       "detection.scan_regions",
	"detection_scan_concurrency":   "detection.scan_concurrency",
	"detection_result_store_path":  "detection.result_store_path",
	"detection_history_retention":  "detection.history_retention",

	"breaker_enabled":       "breaker.enabled",
	"breaker_max_requests":  "breaker.max_requests",
	"breaker_interval":      "breaker.interval",
	"breaker_timeout":       "breaker.timeout",
	"breaker_min_requests":  "breaker.min_requests",
	"breaker_failure_ratio": "breaker.failure_ratio",

	"auth_mode":       "security.auth_mode",
	"jwt_secret":      "security.jwt_secret",
	"session_timeout": "security.session_timeout",
	"admin_username":  "security.admin_username",
	"admin_password":  "security.admin_password",
	"cors_origins":    "security.cors_origins",
	"default_role":    "security.default_role",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to its koanf path.
// Unmapped keys return "" and are skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testJWTSecret = "k3x9-Zq2vL8pR4tW7yB1nM6cF0hJ5sD2"

// setJWTEnv sets the minimum environment for a valid jwt configuration.
func setJWTEnv(t *testing.T) {
	t.Helper()
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("JWT_SECRET", testJWTSecret)
	t.Setenv("ADMIN_USERNAME", "ops")
	t.Setenv("ADMIN_PASSWORD", "Str0ng!Passw0rd#")
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	if cfg.Detection.RadiusMeters != 500 {
		t.Errorf("Detection.RadiusMeters = %v, want 500", cfg.Detection.RadiusMeters)
	}
	if cfg.Detection.MaxGroups != 50 {
		t.Errorf("Detection.MaxGroups = %d, want 50", cfg.Detection.MaxGroups)
	}
	if !cfg.Detection.SpatialIndex {
		t.Error("Detection.SpatialIndex should be enabled by default")
	}
	if cfg.Source.Backend != BackendDuckDB {
		t.Errorf("Source.Backend = %q, want duckdb", cfg.Source.Backend)
	}
	if cfg.Security.AuthMode != "jwt" {
		t.Errorf("Security.AuthMode = %q, want jwt", cfg.Security.AuthMode)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}

	dc := cfg.Detection.DetectorConfig()
	if dc.RadiusMeters != 500 || dc.MaxGroups != 50 || !dc.SpatialIndex {
		t.Errorf("DetectorConfig() = %+v", dc)
	}
	bc := cfg.Breaker.ToDetection("reports")
	if bc.Name != "reports" || bc.FailureRatio != 0.6 || bc.MinRequests != 10 {
		t.Errorf("ToDetection() = %+v", bc)
	}
}

func TestLoadWithKoanf_Env(t *testing.T) {
	setJWTEnv(t)
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DETECTION_RADIUS_METERS", "250.5")
	t.Setenv("DETECTION_MAX_GROUPS", "10")
	t.Setenv("DETECTION_SPATIAL_INDEX", "false")
	t.Setenv("DETECTION_TIMEOUT", "3s")
	t.Setenv("DETECTION_SCAN_ENABLED", "true")
	t.Setenv("DETECTION_SCAN_REGIONS", "north, south ,,east")
	t.Setenv("CORS_ORIGINS", "https://a.example.org,https://b.example.org")
	t.Setenv("BREAKER_FAILURE_RATIO", "0.8")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("UNRELATED_VARIABLE", "ignored")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
	if cfg.Detection.RadiusMeters != 250.5 || cfg.Detection.MaxGroups != 10 || cfg.Detection.SpatialIndex {
		t.Errorf("Detection = %+v", cfg.Detection)
	}
	if cfg.Detection.Timeout != 3*time.Second {
		t.Errorf("Detection.Timeout = %v", cfg.Detection.Timeout)
	}
	if got := strings.Join(cfg.Detection.ScanRegions, "|"); got != "north|south|east" {
		t.Errorf("ScanRegions = %q", got)
	}
	if len(cfg.Security.CORSOrigins) != 2 {
		t.Errorf("CORSOrigins = %v", cfg.Security.CORSOrigins)
	}
	if cfg.Breaker.FailureRatio != 0.8 {
		t.Errorf("Breaker.FailureRatio = %v", cfg.Breaker.FailureRatio)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
	if cfg.Security.AdminUsername != "ops" {
		t.Errorf("AdminUsername = %q", cfg.Security.AdminUsername)
	}

	sc := cfg.Detection.ScannerConfig()
	if len(sc.Regions) != 3 || sc.Interval != 5*time.Minute {
		t.Errorf("ScannerConfig() = %+v", sc)
	}
}

func TestLoadWithKoanf_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
source:
  backend: mongo
  mongo:
    uri: mongodb://mongo:27017
    database: city
detection:
  radius_meters: 300
  scan_regions:
    - downtown
    - harbour
security:
  auth_mode: none
logging:
  format: console
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("DETECTION_RADIUS_METERS", "450")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf: %v", err)
	}
	if cfg.Source.Backend != BackendMongo || cfg.Source.Mongo.Database != "city" {
		t.Errorf("Source = %+v", cfg.Source)
	}
	if cfg.Source.Mongo.Collection != "reports" {
		t.Errorf("default collection lost: %q", cfg.Source.Mongo.Collection)
	}
	if cfg.Detection.RadiusMeters != 450 {
		t.Errorf("env should override file, radius = %v", cfg.Detection.RadiusMeters)
	}
	if len(cfg.Detection.ScanRegions) != 2 || cfg.Detection.ScanRegions[1] != "harbour" {
		t.Errorf("ScanRegions = %v", cfg.Detection.ScanRegions)
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("Logging.Format = %q", cfg.Logging.Format)
	}
}

func TestLoadWithKoanf_Invalid(t *testing.T) {
	setJWTEnv(t)
	t.Setenv("DETECTION_MAX_GROUPS", "0")

	_, err := LoadWithKoanf()
	if err == nil || !strings.Contains(err.Error(), "DETECTION_MAX_GROUPS") {
		t.Fatalf("err = %v", err)
	}
}

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Security.JWTSecret = testJWTSecret
	cfg.Security.AdminUsername = "ops"
	cfg.Security.AdminPassword = "Str0ng!Passw0rd#"
	return cfg
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "HTTP_PORT"},
		{"zero radius", func(c *Config) { c.Detection.RadiusMeters = 0 }, "DETECTION_RADIUS_METERS"},
		{"negative timeout", func(c *Config) { c.Detection.Timeout = -time.Second }, "DETECTION_TIMEOUT"},
		{"scan without interval", func(c *Config) {
			c.Detection.ScanEnabled = true
			c.Detection.ScanInterval = 0
		}, "DETECTION_SCAN_INTERVAL"},
		{"unknown backend", func(c *Config) { c.Source.Backend = "postgres" }, "SOURCE_BACKEND"},
		{"mongo without uri", func(c *Config) { c.Source.Backend = BackendMongo }, "MONGO_URI is required"},
		{"mongo bad scheme", func(c *Config) {
			c.Source.Backend = BackendMongo
			c.Source.Mongo.URI = "http://mongo"
		}, "MONGO_URI must start"},
		{"breaker ratio", func(c *Config) { c.Breaker.FailureRatio = 1.5 }, "BREAKER_FAILURE_RATIO"},
		{"breaker disabled ignores ratio", func(c *Config) {
			c.Breaker.Enabled = false
			c.Breaker.FailureRatio = 0
		}, ""},
		{"unknown auth mode", func(c *Config) { c.Security.AuthMode = "basic" }, "AUTH_MODE"},
		{"none in production", func(c *Config) {
			c.Security.AuthMode = "none"
			c.Server.Environment = "production"
		}, "AUTH_MODE=none"},
		{"wildcard cors in production", func(c *Config) { c.Server.Environment = "prod" }, "CORS_ORIGINS"},
		{"short secret", func(c *Config) { c.Security.JWTSecret = "short" }, "at least 32"},
		{"placeholder secret", func(c *Config) {
			c.Security.JWTSecret = "CHANGEME-CHANGEME-CHANGEME-CHANGEME"
		}, "placeholder"},
		{"missing admin", func(c *Config) { c.Security.AdminUsername = "" }, "ADMIN_USERNAME"},
		{"weak password", func(c *Config) { c.Security.AdminPassword = "alllowercase1!" }, "uppercase"},
		{"short password", func(c *Config) { c.Security.AdminPassword = "Ab1!" }, "at least 12"},
		{"password contains username", func(c *Config) { c.Security.AdminPassword = "Ops!Secure2026x" }, "username"},
		{"unknown role", func(c *Config) { c.Security.DefaultRole = "root" }, "DEFAULT_ROLE"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "LOG_LEVEL"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
		{"auth none skips jwt checks", func(c *Config) {
			c.Security.AuthMode = "none"
			c.Security.JWTSecret = ""
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestShouldWarnAboutCORS(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	if !cfg.ShouldWarnAboutCORS() {
		t.Error("wildcard with jwt should warn")
	}
	cfg.Security.CORSOrigins = []string{"https://city.example.org"}
	if cfg.ShouldWarnAboutCORS() {
		t.Error("explicit origins should not warn")
	}
}

func TestEnvTransformFunc(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"DETECTION_RADIUS_METERS": "detection.radius_meters",
		"MONGO_URI":               "source.mongo.uri",
		"log_level":               "logging.level",
		"PATH":                    "",
	}
	for in, want := range tests {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}
}

// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

/*
Package config loads CivicPulse configuration with Koanf v2.

Values are layered, later sources overriding earlier ones:

  - Built-in defaults (defaultConfig)
  - An optional YAML file (CONFIG_PATH, ./config.yaml or /etc/civicpulse/config.yaml)
  - Environment variables, mapped explicitly by envTransformFunc

Unmapped environment variables are ignored so unrelated process
environment never leaks into the configuration.

# Sections

  - Server: HTTP listener and environment name
  - Database: DuckDB file used as the default report store
  - Source: report backend selection (duckdb or mongo) and Mongo settings
  - Detection: radius, group cap, spatial index, timeouts, snapshot cache,
    background scanner and result store
  - Breaker: circuit breaker in front of the report source
  - Security: auth mode, JWT, admin credentials, CORS
  - Logging: zerolog level, format and caller

# Validation

Load validates the merged configuration and refuses to start on an invalid
auth setup (short JWT secrets, placeholder or weak admin passwords,
AUTH_MODE=none in production) as well as on nonsensical detection settings.

# Example

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}
	detector, err := detection.NewClusterDetector(cfg.Detection.DetectorConfig())
*/
package config

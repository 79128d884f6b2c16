// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

/*
Package main is the entry point for the CivicPulse server.

CivicPulse finds civic issue reports that describe the same problem: reports
in one category, filed by different citizens, within a short walk of each
other. Operators review the groups and mark the primary report as important.

# Application Architecture

Long-running components run under a Suture v4 supervisor tree:

	RootSupervisor ("civicpulse")
	├── DataSupervisor ("data-layer")
	│   └── result-store-gc (BadgerDB value log GC)
	├── DetectionSupervisor ("detection-layer")
	│   ├── duplicate-scanner (optional, DETECTION_SCAN_ENABLED=true)
	│   └── event-router (audit log of domain events)
	└── APISupervisor ("api-layer")
	    └── http-server

Component initialization order:

 1. Configuration: Koanf v2 with defaults, config.yaml and environment variables
 2. Report source: DuckDB (read/write) or MongoDB (read, flag only)
 3. Source wrappers: circuit breaker and snapshot cache
 4. Detection service: detector, BadgerDB scan history, event bus
 5. Authentication: JWT or no-auth mode, Casbin role checks
 6. HTTP server: REST API under /api/v1 and Prometheus metrics

# Report Backends

	SOURCE_BACKEND=duckdb   # default; DUCKDB_PATH, DUCKDB_MAX_MEMORY, DUCKDB_THREADS
	SOURCE_BACKEND=mongo    # MONGO_URI, MONGO_DATABASE, MONGO_COLLECTION

The MongoDB backend reads the collection written by the citizen reporting
application. It accepts important-flag updates but not new reports.

# Example Usage

Development without authentication:

	export AUTH_MODE=none
	export DUCKDB_PATH=
	./civicpulse

Production with JWT and a MongoDB report collection:

	export SOURCE_BACKEND=mongo
	export MONGO_URI=mongodb://mongo:27017
	export JWT_SECRET=$(openssl rand -base64 32)
	export ADMIN_USERNAME=admin
	export ADMIN_PASSWORD=secure-password
	./civicpulse

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains in-flight
requests for SHUTDOWN_TIMEOUT, then stores are closed.
*/
package main

// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

/*
Package supervisor runs the long-lived parts of CivicPulse under a suture v4
supervisor tree.

The tree has three layers so a failure in one does not take down the others:

	RootSupervisor ("civicpulse")
	├── DataSupervisor ("data-layer")
	│   └── result store GC
	├── DetectionSupervisor ("detection-layer")
	│   ├── duplicate-scanner (if DETECTION_SCAN_ENABLED)
	│   └── event-router
	└── APISupervisor ("api-layer")
	    └── http-server

A scanner that keeps failing against an unreachable report source backs off
and restarts on its own while the API keeps answering from stored scans.

Supervisor events (starts, failures, backoff) are logged through
sutureslog with the zerolog-backed slog logger from internal/logging:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddDetectionService(scanner)
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	return tree.Serve(ctx)
*/
package supervisor

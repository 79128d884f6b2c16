// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

// Package cache provides a small thread-safe TTL cache.
//
// It holds short-lived report snapshots in front of the report source so
// that a burst of dashboard requests for the same region triggers one
// storage query. Entries expire lazily on Get and are also swept by a
// background goroutine that stops on Close.
//
//	snapshots := cache.New[[]detection.Report](30 * time.Second)
//	defer snapshots.Close()
//
//	if reports, ok := snapshots.Get("snapshot:north"); ok {
//	    ...
//	}
package cache

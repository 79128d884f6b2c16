// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

// Package services adapts CivicPulse components to suture.Service.
//
// detection.Scanner and events.Router already implement Serve(ctx) error
// and are added to the tree directly. This package covers the rest: the
// HTTP server, whose ListenAndServe does not take a context, and periodic
// maintenance jobs such as result store garbage collection.
package services

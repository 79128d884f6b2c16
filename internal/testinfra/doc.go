// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

// Package testinfra starts throwaway containers for integration tests.
//
// Everything here is behind the "integration" build tag and needs Docker:
//
//	go test -tags integration ./internal/...
//
// The MongoDB container stands in for the citizen reporting backend so
// detection.MongoSource can be exercised against a real server:
//
//	func TestMongoSource(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    mongo, err := testinfra.NewMongoContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, mongo)
//	    // connect with mongo.URI
//	}
package testinfra

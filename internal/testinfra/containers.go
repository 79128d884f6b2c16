// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

//go:build integration

package testinfra

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
)

var (
	dockerOnce      sync.Once
	dockerAvailable bool
)

// SkipIfNoDocker skips the test when no Docker daemon is reachable.
func SkipIfNoDocker(t *testing.T) {
	t.Helper()
	if !IsDockerAvailable() {
		t.Skip("Skipping test: Docker not available")
	}
}

// IsDockerAvailable asks the testcontainers Docker provider for a health
// check. The answer is cached for the test binary.
func IsDockerAvailable() bool {
	dockerOnce.Do(func() {
		provider, err := testcontainers.NewDockerProvider()
		if err != nil {
			return
		}
		defer provider.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		dockerAvailable = provider.Health(ctx) == nil
	})
	return dockerAvailable
}

// CleanupContainer terminates container, logging rather than failing on error.
func CleanupContainer(t *testing.T, container testcontainers.Container) {
	t.Helper()
	if err := testcontainers.TerminateContainer(container); err != nil {
		t.Logf("Warning: failed to terminate container: %v", err)
	}
}

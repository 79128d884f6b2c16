// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/tomtom215/civicpulse/internal/logging"
)

// HealthLive answers 200 while the process is up, regardless of dependencies.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady pings every registered dependency and answers 503 when any
// of them fails.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	names := make([]string, 0, len(h.ready))
	for name := range h.ready {
		names = append(names, name)
	}
	sort.Strings(names)

	checks := make(map[string]string, len(names))
	ready := true
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), h.readyTimeout)
		err := h.ready[name].Ping(ctx)
		cancel()
		if err != nil {
			ready = false
			checks[name] = "unavailable"
			logging.Ctx(r.Context()).Warn().Err(err).Str("dependency", name).Msg("Readiness check failed")
			continue
		}
		checks[name] = "ok"
	}

	if !ready {
		rw.ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "service is not ready", checks)
		return
	}
	rw.Success(map[string]interface{}{
		"ready":  true,
		"checks": checks,
	})
}

// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

// Package logging wraps zerolog as the single logger for CivicPulse.
//
// A global logger is configured once from main() with Init and used through
// the package-level level helpers:
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Str("region", region).Int("groups", n).Msg("Duplicate scan finished")
//
// Request-scoped code logs through Ctx, which adds request_id and
// correlation_id from the context:
//
//	logging.Ctx(ctx).Warn().Str("report_id", id).Msg("Skipping malformed report")
//
// Libraries that expect log/slog (the suture supervisor, watermill) receive a
// *slog.Logger from NewSlogLogger that forwards into the same zerolog output.
//
// Always terminate a chain with Msg or Send, otherwise nothing is written.
package logging

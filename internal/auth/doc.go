// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

// Package auth authenticates API callers.
//
// Operators log in with the configured admin credentials (checked against a
// bcrypt hash computed at startup) and receive an HS256 JWT carrying their
// username, role and optional region. Middleware.Authenticate validates the
// bearer token on every protected request and stores the resulting Subject
// in the request context, where the authz package and the handlers read it.
//
// With AUTH_MODE=none every request is treated as an anonymous subject with
// the configured default role. This is refused in production by config
// validation.
package auth

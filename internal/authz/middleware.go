// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

package authz

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/civicpulse/internal/auth"
	"github.com/tomtom215/civicpulse/internal/logging"
)

// Middleware provides authorization middleware using Casbin.
type Middleware struct {
	enforcer *Enforcer
}

// NewMiddleware creates a new authorization middleware.
func NewMiddleware(enforcer *Enforcer) *Middleware {
	return &Middleware{enforcer: enforcer}
}

// Authorize returns chi-compatible middleware that requires the subject in
// the request context to be allowed action on object.
func (m *Middleware) Authorize(object, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := auth.SubjectFromContext(r.Context())
			if subject == nil {
				writeForbidden(w, r, "no authentication context")
				return
			}

			allowed, err := m.enforcer.EnforceWithRoles(subject.Roles, object, action)
			if err != nil {
				logging.Ctx(r.Context()).Error().Err(err).Msg("Authorization error")
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			if !allowed {
				logging.Ctx(r.Context()).Warn().
					Str("user", subject.Username).
					Strs("roles", subject.Roles).
					Str("object", object).
					Str("action", action).
					Msg("Access denied")
				writeForbidden(w, r, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type forbiddenDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type forbiddenBody struct {
	Success bool            `json:"success"`
	Error   forbiddenDetail `json:"error"`
}

func writeForbidden(w http.ResponseWriter, r *http.Request, message string) {
	body := forbiddenBody{Error: forbiddenDetail{
		Code:      "FORBIDDEN",
		Message:   message,
		RequestID: logging.RequestIDFromContext(r.Context()),
	}}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to write forbidden response")
	}
}

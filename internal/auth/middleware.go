// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

package auth

import (
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/civicpulse/internal/logging"
)

// Middleware authenticates requests according to the configured mode.
type Middleware struct {
	jwt         *JWTManager
	mode        AuthMode
	defaultRole string
}

// NewMiddleware creates the authentication middleware. jwtManager may be nil
// when mode is AuthModeNone.
func NewMiddleware(jwtManager *JWTManager, mode AuthMode, defaultRole string) *Middleware {
	if defaultRole == "" {
		defaultRole = "viewer"
	}
	return &Middleware{jwt: jwtManager, mode: mode, defaultRole: defaultRole}
}

// Authenticate stores the caller's Subject in the request context or
// responds 401.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.mode == AuthModeNone {
			subject := &Subject{Username: AnonymousUser, Roles: []string{m.defaultRole}, AuthMethod: AuthModeNone}
			next.ServeHTTP(w, r.WithContext(ContextWithSubject(r.Context(), subject)))
			return
		}

		token, err := extractBearerToken(r)
		if err != nil {
			writeUnauthorized(w, r, err.Error())
			return
		}
		claims, err := m.jwt.ValidateToken(token)
		if err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Msg("Token validation failed")
			writeUnauthorized(w, r, "invalid token")
			return
		}

		subject := SubjectFromClaims(claims)
		if len(subject.Roles) == 0 {
			subject.Roles = []string{m.defaultRole}
		}
		ctx := ContextWithSubject(r.Context(), subject)
		ctx = logging.ContextWithLogger(ctx, logging.Ctx(ctx).With().Str("user", subject.Username).Logger())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractBearerToken reads the token from the Authorization header, falling
// back to the "token" cookie.
func extractBearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		cookie, err := r.Cookie("token")
		if err != nil || cookie.Value == "" {
			return "", ErrNoCredentials
		}
		return cookie.Value, nil
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", ErrInvalidCredentials
	}
	return token, nil
}

type errorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type errorBody struct {
	Success bool        `json:"success"`
	Error   errorDetail `json:"error"`
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request, message string) {
	body := errorBody{Error: errorDetail{
		Code:      "UNAUTHORIZED",
		Message:   message,
		RequestID: logging.RequestIDFromContext(r.Context()),
	}}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="civicpulse"`)
	w.WriteHeader(http.StatusUnauthorized)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to write unauthorized response")
	}
}

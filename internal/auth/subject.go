// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

package auth

import (
	"context"
	"errors"
	"slices"
)

// AuthMode represents the authentication strategy.
type AuthMode string

const (
	// AuthModeNone disables authentication
	AuthModeNone AuthMode = "none"

	// AuthModeJWT uses JWT Bearer tokens
	AuthModeJWT AuthMode = "jwt"
)

// ParseAuthMode converts a string to AuthMode.
func ParseAuthMode(s string) (AuthMode, error) {
	switch s {
	case "none", "":
		return AuthModeNone, nil
	case "jwt":
		return AuthModeJWT, nil
	default:
		return "", errors.New("invalid auth mode: " + s)
	}
}

// Standard authentication errors
var (
	// ErrNoCredentials indicates no credentials were provided.
	ErrNoCredentials = errors.New("no credentials provided")

	// ErrInvalidCredentials indicates credentials were invalid.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// AnonymousUser is the username given to callers when authentication is disabled.
const AnonymousUser = "anonymous"

// Subject is an authenticated caller.
type Subject struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`

	// Region restricts the caller to one region. Empty means all regions.
	Region string `json:"region,omitempty"`

	AuthMethod AuthMode `json:"auth_method"`
	ExpiresAt  int64    `json:"expires_at,omitempty"`
}

// HasRole checks if the subject has a specific role.
func (s *Subject) HasRole(role string) bool {
	return role != "" && slices.Contains(s.Roles, role)
}

// CanAccessRegion reports whether the subject may read or write region.
// An unscoped subject may access everything; a scoped one only its own region.
func (s *Subject) CanAccessRegion(region string) bool {
	return s.Region == "" || s.Region == region
}

// SubjectFromClaims converts validated token claims into a Subject.
func SubjectFromClaims(claims *Claims) *Subject {
	if claims == nil {
		return nil
	}
	s := &Subject{
		Username:   claims.Username,
		Region:     claims.Region,
		AuthMethod: AuthModeJWT,
	}
	if claims.Role != "" {
		s.Roles = []string{claims.Role}
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Unix()
	}
	return s
}

type contextKey string

const subjectContextKey contextKey = "auth_subject"

// ContextWithSubject returns ctx carrying s.
func ContextWithSubject(ctx context.Context, s *Subject) context.Context {
	return context.WithValue(ctx, subjectContextKey, s)
}

// SubjectFromContext returns the authenticated subject, or nil.
func SubjectFromContext(ctx context.Context) *Subject {
	s, _ := ctx.Value(subjectContextKey).(*Subject)
	return s
}

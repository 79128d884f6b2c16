// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/civicpulse/internal/auth"
	"github.com/tomtom215/civicpulse/internal/detection"
	"github.com/tomtom215/civicpulse/internal/validation"
)

// maxRequestBody bounds JSON request bodies.
const maxRequestBody = 1 << 20

// Pinger is a dependency the readiness probe checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HandlerDeps wires a Handler. Service is required; JWT and Admin are nil
// when authentication is disabled, which turns login off.
type HandlerDeps struct {
	Service *detection.Service
	JWT     *auth.JWTManager
	Admin   *auth.AdminCredentials

	// Ready lists named dependencies for /health/ready.
	Ready map[string]Pinger

	// ReadyTimeout bounds each readiness ping. Defaults to 2s.
	ReadyTimeout time.Duration
}

// Handler contains dependencies for API handlers.
//
// Handler methods are split across files:
//   - handlers_duplicates.go: detection results, stored scans and GeoJSON
//   - handlers_reports.go: report ingest and the important flag
//   - handlers_auth.go: login
//   - handlers_health.go: liveness and readiness probes
type Handler struct {
	service      *detection.Service
	jwt          *auth.JWTManager
	admin        *auth.AdminCredentials
	ready        map[string]Pinger
	readyTimeout time.Duration
	startTime    time.Time
}

// NewHandler creates a new API handler.
func NewHandler(deps HandlerDeps) (*Handler, error) {
	if deps.Service == nil {
		return nil, errors.New("api: detection service is required")
	}
	if deps.ReadyTimeout <= 0 {
		deps.ReadyTimeout = 2 * time.Second
	}
	return &Handler{
		service:      deps.Service,
		jwt:          deps.JWT,
		admin:        deps.Admin,
		ready:        deps.Ready,
		readyTimeout: deps.ReadyTimeout,
		startTime:    time.Now(),
	}, nil
}

// decodeJSON reads a bounded JSON body into dst. An empty body is allowed
// when optional is true.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}, optional bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	err := dec.Decode(dst)
	if optional && errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

type regionQuery struct {
	Region string `json:"region" validate:"omitempty,region_slug"`
}

// resolveRegion returns the region a request may act on. Region-scoped
// subjects default to their own region and are refused any other. ok is
// false when a response has already been written.
func resolveRegion(rw *ResponseWriter, r *http.Request, requested string) (region string, ok bool) {
	q := regionQuery{Region: requested}
	if verr := validation.ValidateStruct(&q); verr != nil {
		rw.ValidationError(verr)
		return "", false
	}

	subject := auth.SubjectFromContext(r.Context())
	if subject == nil || subject.Region == "" {
		return requested, true
	}
	if requested == "" {
		return subject.Region, true
	}
	if !subject.CanAccessRegion(requested) {
		rw.Forbidden("region is outside your assigned region")
		return "", false
	}
	return requested, true
}

func subjectName(r *http.Request) string {
	if s := auth.SubjectFromContext(r.Context()); s != nil {
		return s.Username
	}
	return auth.AnonymousUser
}

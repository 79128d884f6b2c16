// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/civicpulse/internal/auth"
	"github.com/tomtom215/civicpulse/internal/authz"
	"github.com/tomtom215/civicpulse/internal/middleware"
)

// Router binds the handler to chi routes behind authentication and
// authorization.
type Router struct {
	handler     *Handler
	authn       *auth.Middleware
	authz       *authz.Middleware
	corsOrigins []string
}

// NewRouter creates a router. An empty corsOrigins allows every origin.
func NewRouter(handler *Handler, authn *auth.Middleware, authzMw *authz.Middleware, corsOrigins []string) *Router {
	return &Router{
		handler:     handler,
		authn:       authn,
		authz:       authzMw,
		corsOrigins: corsOrigins,
	}
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, in order.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.cors()) // must be global to answer OPTIONS preflight
	r.Use(middleware.AccessLog)

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(middleware.PrometheusMetrics)
		r.Post("/login", router.handler.Login)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.PrometheusMetrics)
		r.Use(router.authn.Authenticate)

		r.Group(func(r chi.Router) {
			r.Use(router.authz.Authorize(authz.ObjectDuplicates, authz.ActionRead))
			r.Get("/duplicates", router.handler.Duplicates)
			r.Get("/duplicates/geojson", router.handler.DuplicatesGeoJSON)
			r.Get("/duplicates/latest", router.handler.DuplicatesLatest)
		})

		r.With(router.authz.Authorize(authz.ObjectHistory, authz.ActionRead)).
			Get("/duplicates/history", router.handler.DuplicatesHistory)

		r.Group(func(r chi.Router) {
			r.Use(router.authz.Authorize(authz.ObjectReports, authz.ActionWrite))
			r.Post("/reports", router.handler.SubmitReport)
			r.Post("/reports/{id}/important", router.handler.FlagImportant)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (router *Router) cors() func(http.Handler) http.Handler {
	origins := router.corsOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	allowCredentials := true
	for _, o := range origins {
		// Browsers reject credentials with a wildcard origin.
		if o == "*" {
			allowCredentials = false
			break
		}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader, PartialHeader},
		AllowCredentials: allowCredentials,
		MaxAge:           int((12 * time.Hour).Seconds()),
	})
}

// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/civicpulse/internal/logging"
)

const defaultHTTPShutdownTimeout = 10 * time.Second

// HTTPServer matches the lifecycle methods of *http.Server.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServerService runs the API server in the api layer. When the tree
// stops it drains in-flight duplicate queries and flag writes for up to the
// shutdown timeout.
type HTTPServerService struct {
	server          HTTPServer
	addr            string
	shutdownTimeout time.Duration
}

// NewHTTPServerService wraps server. A non-positive timeout selects 10s.
func NewHTTPServerService(server HTTPServer, shutdownTimeout time.Duration) *HTTPServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultHTTPShutdownTimeout
	}
	svc := &HTTPServerService{server: server, shutdownTimeout: shutdownTimeout}
	if s, ok := server.(*http.Server); ok {
		svc.addr = s.Addr
	}
	return svc
}

// Addr is the configured listen address, empty for non-*http.Server values.
func (h *HTTPServerService) Addr() string {
	return h.addr
}

// Serve implements suture.Service. Returning ctx.Err() after a clean drain
// tells suture the stop was requested.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	listenErr := make(chan error, 1)
	go func() {
		err := h.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		listenErr <- err
	}()
	logging.Info().Str("addr", h.addr).Msg("API server listening")

	select {
	case err := <-listenErr:
		if err != nil {
			return fmt.Errorf("api server on %q: %w", h.addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	started := time.Now()
	drainCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
	defer cancel()
	if err := h.server.Shutdown(drainCtx); err != nil {
		return fmt.Errorf("api server drain: %w", err)
	}
	<-listenErr
	logging.Info().
		Str("addr", h.addr).
		Dur("drained_in", time.Since(started)).
		Msg("API server stopped")
	return ctx.Err()
}

func (h *HTTPServerService) String() string {
	return "http-server"
}

// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

package main

import (
	"context"
	"fmt"

	"github.com/tomtom215/civicpulse/internal/auth"
	"github.com/tomtom215/civicpulse/internal/authz"
	"github.com/tomtom215/civicpulse/internal/config"
	"github.com/tomtom215/civicpulse/internal/logging"
)

// adminRole is granted to the configured admin login.
const adminRole = "admin"

type authComponents struct {
	mode     auth.AuthMode
	jwt      *auth.JWTManager
	admin    *auth.AdminCredentials
	authn    *auth.Middleware
	enforcer *authz.Enforcer
	authz    *authz.Middleware
}

func initAuth(ctx context.Context, cfg *config.Config) (*authComponents, error) {
	mode, err := auth.ParseAuthMode(cfg.Security.AuthMode)
	if err != nil {
		return nil, err
	}

	c := &authComponents{mode: mode}
	if mode == auth.AuthModeJWT {
		c.jwt, err = auth.NewJWTManager(&cfg.Security)
		if err != nil {
			return nil, fmt.Errorf("failed to create JWT manager: %w", err)
		}
		c.admin, err = auth.NewAdminCredentials(cfg.Security.AdminUsername, cfg.Security.AdminPassword, adminRole, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to set up admin credentials: %w", err)
		}
		logging.Info().
			Str("admin", cfg.Security.AdminUsername).
			Dur("session_timeout", cfg.Security.SessionTimeout).
			Msg("JWT authentication enabled")
	} else {
		logging.Warn().Msg("==========================================================")
		logging.Warn().Msg("AUTH_MODE=none: every request is served as an anonymous")
		logging.Warn().Str("role", cfg.Security.DefaultRole).Msg("user with the default role. Do not expose this server.")
		logging.Warn().Msg("==========================================================")
	}

	c.authn = auth.NewMiddleware(c.jwt, mode, cfg.Security.DefaultRole)

	enforcerCfg := authz.DefaultEnforcerConfig()
	enforcerCfg.DefaultRole = cfg.Security.DefaultRole
	c.enforcer, err = authz.NewEnforcer(ctx, enforcerCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create authorization enforcer: %w", err)
	}
	c.authz = authz.NewMiddleware(c.enforcer)
	return c, nil
}

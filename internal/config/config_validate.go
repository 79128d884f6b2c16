// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode"
)

// Validate checks the merged configuration. It returns the first problem found.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateSource,
		c.validateDetection,
		c.validateBreaker,
		c.validateSecurity,
		c.validateLogging,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

// validateServer validates server configuration
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateSource() error {
	switch c.Source.Backend {
	case BackendDuckDB:
		return nil
	case BackendMongo:
		if c.Source.Mongo.URI == "" {
			return fmt.Errorf("MONGO_URI is required when SOURCE_BACKEND is mongo")
		}
		if !strings.HasPrefix(c.Source.Mongo.URI, "mongodb://") && !strings.HasPrefix(c.Source.Mongo.URI, "mongodb+srv://") {
			return fmt.Errorf("MONGO_URI must start with mongodb:// or mongodb+srv://")
		}
		if c.Source.Mongo.Database == "" || c.Source.Mongo.Collection == "" {
			return fmt.Errorf("MONGO_DATABASE and MONGO_COLLECTION are required when SOURCE_BACKEND is mongo")
		}
		return nil
	default:
		return fmt.Errorf("SOURCE_BACKEND must be one of: %s, %s", BackendDuckDB, BackendMongo)
	}
}

// validateDetection rejects settings the detector could not run with.
func (c *Config) validateDetection() error {
	d := c.Detection
	if d.RadiusMeters <= 0 {
		return fmt.Errorf("DETECTION_RADIUS_METERS must be positive, got %v", d.RadiusMeters)
	}
	if d.MaxGroups < 1 {
		return fmt.Errorf("DETECTION_MAX_GROUPS must be at least 1, got %d", d.MaxGroups)
	}
	if d.Timeout < 0 || d.SnapshotCacheTTL < 0 {
		return fmt.Errorf("DETECTION_TIMEOUT and DETECTION_SNAPSHOT_CACHE_TTL must not be negative")
	}
	if d.ScanEnabled && d.ScanInterval <= 0 {
		return fmt.Errorf("DETECTION_SCAN_INTERVAL must be positive when scanning is enabled")
	}
	return nil
}

func (c *Config) validateBreaker() error {
	if !c.Breaker.Enabled {
		return nil
	}
	if c.Breaker.FailureRatio <= 0 || c.Breaker.FailureRatio > 1 {
		return fmt.Errorf("BREAKER_FAILURE_RATIO must be in (0, 1], got %v", c.Breaker.FailureRatio)
	}
	if c.Breaker.Timeout <= 0 {
		return fmt.Errorf("BREAKER_TIMEOUT must be positive")
	}
	return nil
}

// validAuthModes defines the allowed authentication modes
var validAuthModes = []string{"none", "jwt"}

// validRoles lists the roles known to the authorization policy.
var validRoles = []string{"viewer", "operator", "admin", "superadmin"}

// validateSecurity validates security configuration
func (c *Config) validateSecurity() error {
	s := c.Security
	if !slices.Contains(validAuthModes, s.AuthMode) {
		return fmt.Errorf("AUTH_MODE must be one of: %s", strings.Join(validAuthModes, ", "))
	}
	if s.AuthMode == "none" && c.IsProduction() {
		return fmt.Errorf("AUTH_MODE=none is not allowed when ENVIRONMENT=production. " +
			"Set AUTH_MODE=jwt or use ENVIRONMENT=development for testing purposes")
	}
	if !slices.Contains(validRoles, s.DefaultRole) {
		return fmt.Errorf("DEFAULT_ROLE must be one of: %s", strings.Join(validRoles, ", "))
	}
	if err := c.validateCORS(); err != nil {
		return err
	}
	if s.AuthMode != "jwt" {
		return nil
	}
	if err := c.validateJWTSecret(); err != nil {
		return err
	}
	if s.SessionTimeout <= 0 {
		return fmt.Errorf("SESSION_TIMEOUT must be positive")
	}
	return c.validateAdminCredentials()
}

// validateCORS rejects wildcard origins in production with authentication
// enabled: any site could then use a stolen token.
func (c *Config) validateCORS() error {
	if c.Security.AuthMode != "none" && c.hasWildcardCORS() && c.IsProduction() {
		return fmt.Errorf("CORS_ORIGINS=* (wildcard) is not allowed in production with authentication enabled. " +
			"Set specific origins, e.g. CORS_ORIGINS=https://city.example.org")
	}
	return nil
}

func (c *Config) hasWildcardCORS() bool {
	return slices.Contains(c.Security.CORSOrigins, "*")
}

// ShouldWarnAboutCORS returns true if CORS configuration has security concerns
// that should be logged at startup
func (c *Config) ShouldWarnAboutCORS() bool {
	return c.Security.AuthMode != "none" && c.hasWildcardCORS()
}

// IsProduction returns true if the application is running in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "production" || env == "prod"
}

func (c *Config) validateJWTSecret() error {
	secret := c.Security.JWTSecret
	switch {
	case secret == "":
		return fmt.Errorf("JWT_SECRET is required when AUTH_MODE is jwt")
	case len(secret) < 32:
		return fmt.Errorf("JWT_SECRET must be at least 32 characters for security")
	case containsPlaceholder(secret):
		return fmt.Errorf("JWT_SECRET contains a placeholder value - generate a secure secret with: openssl rand -base64 32")
	}
	return nil
}

func (c *Config) validateAdminCredentials() error {
	if c.Security.AdminUsername == "" {
		return fmt.Errorf("ADMIN_USERNAME is required when AUTH_MODE is jwt")
	}
	if c.Security.AdminPassword == "" {
		return fmt.Errorf("ADMIN_PASSWORD is required when AUTH_MODE is jwt")
	}
	if containsPlaceholder(c.Security.AdminPassword) {
		return fmt.Errorf("ADMIN_PASSWORD contains a placeholder value - set a secure password")
	}
	if err := checkPassword(c.Security.AdminPassword, c.Security.AdminUsername); err != nil {
		return fmt.Errorf("ADMIN_PASSWORD: %w", err)
	}
	return nil
}

// minAdminPasswordLength follows NIST SP 800-63B guidance for privileged accounts.
const minAdminPasswordLength = 12

// commonPasswords is a short deny list of passwords seen in every breach corpus.
var commonPasswords = []string{
	"password1234", "administrator", "qwertyuiop12", "letmein12345",
	"welcome12345", "civicpulse123", "admin1234567", "123456789012",
}

// checkPassword enforces the admin password policy: minimum length, mixed
// character classes, no common passwords, and no reuse of the username.
func checkPassword(password, username string) error {
	if len(password) < minAdminPasswordLength {
		return fmt.Errorf("must be at least %d characters", minAdminPasswordLength)
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			special = true
		}
	}
	var missing []string
	if !upper {
		missing = append(missing, "an uppercase letter")
	}
	if !lower {
		missing = append(missing, "a lowercase letter")
	}
	if !digit {
		missing = append(missing, "a digit")
	}
	if !special {
		missing = append(missing, "a special character")
	}
	if len(missing) > 0 {
		return fmt.Errorf("must contain %s", strings.Join(missing, ", "))
	}

	lowered := strings.ToLower(password)
	if slices.Contains(commonPasswords, lowered) {
		return errors.New("is a commonly used password")
	}
	if username != "" && strings.Contains(lowered, strings.ToLower(username)) {
		return errors.New("must not contain the username")
	}
	return nil
}

// validLogLevels defines the allowed log levels
var validLogLevels = []string{"trace", "debug", "info", "warn", "error"}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	if !slices.Contains(validLogLevels, c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL must be one of: %s", strings.Join(validLogLevels, ", "))
	}
	if c.Logging.Format != "" && c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// placeholderPatterns are values that indicate the operator forgot to set a
// real secret.
var placeholderPatterns = []string{
	"REPLACE",
	"CHANGEME",
	"CHANGE_ME",
	"YOUR_SECRET",
	"YOUR_PASSWORD",
	"PLACEHOLDER",
	"EXAMPLE",
}

func containsPlaceholder(value string) bool {
	upper := strings.ToUpper(value)
	for _, pattern := range placeholderPatterns {
		if strings.Contains(upper, pattern) {
			return true
		}
	}
	return false
}

// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

package auth

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is used for the admin password hash.
const DefaultBcryptCost = 12

// AdminCredentials verifies the configured admin login.
type AdminCredentials struct {
	username     string
	passwordHash []byte
	role         string
}

// NewAdminCredentials hashes password once so requests never see the
// plaintext. A cost of 0 selects DefaultBcryptCost.
func NewAdminCredentials(username, password, role string, cost int) (*AdminCredentials, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if password == "" {
		return nil, fmt.Errorf("password is required")
	}
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return &AdminCredentials{username: username, passwordHash: hash, role: role}, nil
}

// Verify returns the admin's role when username and password match.
func (c *AdminCredentials) Verify(username, password string) (string, error) {
	userMatch := subtle.ConstantTimeCompare([]byte(username), []byte(c.username)) == 1
	// Always run bcrypt so a wrong username costs the same as a wrong password.
	passMatch := bcrypt.CompareHashAndPassword(c.passwordHash, []byte(password)) == nil
	if !userMatch || !passMatch {
		return "", ErrInvalidCredentials
	}
	return c.role, nil
}

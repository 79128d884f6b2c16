// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

package auth

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestAdminCredentials(t *testing.T) {
	t.Parallel()

	if _, err := NewAdminCredentials("", "secret", "admin", bcrypt.MinCost); err == nil {
		t.Error("expected error for empty username")
	}
	if _, err := NewAdminCredentials("admin", "", "admin", bcrypt.MinCost); err == nil {
		t.Error("expected error for empty password")
	}

	creds, err := NewAdminCredentials("admin", "Str0ng!Passw0rd#", "superadmin", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewAdminCredentials: %v", err)
	}

	tests := []struct {
		name     string
		username string
		password string
		wantErr  bool
	}{
		{"valid", "admin", "Str0ng!Passw0rd#", false},
		{"wrong password", "admin", "nope", true},
		{"wrong username", "root", "Str0ng!Passw0rd#", true},
		{"both empty", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			role, err := creds.Verify(tt.username, tt.password)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidCredentials) {
					t.Errorf("err = %v, want ErrInvalidCredentials", err)
				}
				return
			}
			if err != nil || role != "superadmin" {
				t.Errorf("Verify = %q, %v", role, err)
			}
		})
	}
}

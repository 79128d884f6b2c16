// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

package authz

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/tomtom215/civicpulse/internal/auth"
)

func newTestEnforcer(t *testing.T, cfg *EnforcerConfig) *Enforcer {
	t.Helper()
	e, err := NewEnforcer(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewEnforcer: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func TestEnforcer_EmbeddedPolicy(t *testing.T) {
	t.Parallel()

	e := newTestEnforcer(t, nil)

	tests := []struct {
		role   string
		object string
		action string
		want   bool
	}{
		{"viewer", ObjectDuplicates, ActionRead, true},
		{"viewer", ObjectReports, ActionWrite, false},
		{"viewer", ObjectHistory, ActionRead, false},
		{"operator", ObjectDuplicates, ActionRead, true},
		{"operator", ObjectReports, ActionWrite, true},
		{"operator", ObjectHistory, ActionRead, false},
		{"admin", ObjectReports, ActionWrite, true},
		{"admin", ObjectHistory, ActionRead, true},
		{"superadmin", ObjectHistory, ActionRead, true},
		{"superadmin", ObjectDuplicates, ActionRead, true},
		{"stranger", ObjectDuplicates, ActionRead, false},
		{"admin", ObjectDuplicates, ActionWrite, false},
	}
	for _, tt := range tests {
		t.Run(tt.role+"/"+tt.object+"/"+tt.action, func(t *testing.T) {
			t.Parallel()
			got, err := e.Enforce(tt.role, tt.object, tt.action)
			if err != nil {
				t.Fatalf("Enforce: %v", err)
			}
			if got != tt.want {
				t.Errorf("Enforce(%s, %s, %s) = %v, want %v", tt.role, tt.object, tt.action, got, tt.want)
			}
		})
	}
}

func TestEnforcer_EnforceWithRoles(t *testing.T) {
	t.Parallel()

	e := newTestEnforcer(t, &EnforcerConfig{DefaultRole: "viewer", CacheTTL: time.Minute})

	if ok, _ := e.EnforceWithRoles(nil, ObjectDuplicates, ActionRead); !ok {
		t.Error("no roles should fall back to the default role")
	}
	if ok, _ := e.EnforceWithRoles(nil, ObjectReports, ActionWrite); ok {
		t.Error("default role must not write")
	}
	if ok, _ := e.EnforceWithRoles([]string{"stranger", "operator"}, ObjectReports, ActionWrite); !ok {
		t.Error("any allowing role should grant access")
	}

	// Second lookup is served from the cache with the same answer.
	for i := 0; i < 2; i++ {
		if ok, _ := e.Enforce("admin", ObjectHistory, ActionRead); !ok {
			t.Fatalf("lookup %d denied", i)
		}
	}
	if e.cache.Len() == 0 {
		t.Error("decisions should be cached")
	}
}

func TestEnforcer_GetImplicitRoles(t *testing.T) {
	t.Parallel()

	e := newTestEnforcer(t, nil)
	roles, err := e.GetImplicitRoles("superadmin")
	if err != nil {
		t.Fatalf("GetImplicitRoles: %v", err)
	}
	for _, want := range []string{"superadmin", "admin", "operator", "viewer"} {
		if !slices.Contains(roles, want) {
			t.Errorf("roles %v missing %s", roles, want)
		}
	}
}

func TestEnforcer_FilePolicy(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	policyPath := filepath.Join(dir, "policy.csv")
	if err := os.WriteFile(policyPath, []byte("p, auditor, history, read\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	e := newTestEnforcer(t, &EnforcerConfig{PolicyPath: policyPath})
	if ok, _ := e.Enforce("auditor", ObjectHistory, ActionRead); !ok {
		t.Error("file policy should grant auditor history read")
	}
	if ok, _ := e.Enforce("viewer", ObjectDuplicates, ActionRead); ok {
		t.Error("embedded policy should not be loaded alongside a file policy")
	}
}

func TestMiddleware_Authorize(t *testing.T) {
	t.Parallel()

	mw := NewMiddleware(newTestEnforcer(t, nil))
	h := mw.Authorize(ObjectReports, ActionWrite)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name    string
		subject *auth.Subject
		want    int
	}{
		{"operator", &auth.Subject{Username: "ops", Roles: []string{"operator"}}, http.StatusNoContent},
		{"viewer", &auth.Subject{Username: "v", Roles: []string{"viewer"}}, http.StatusForbidden},
		{"anonymous request", nil, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/reports", nil)
			if tt.subject != nil {
				req = req.WithContext(auth.ContextWithSubject(req.Context(), tt.subject))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

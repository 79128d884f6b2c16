// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/civicpulse/internal/auth"
	"github.com/tomtom215/civicpulse/internal/authz"
	"github.com/tomtom215/civicpulse/internal/config"
	"github.com/tomtom215/civicpulse/internal/middleware"
)

const testJWTSecret = "router_test_secret_with_more_than_32_chars"

func newTestEnforcer(t *testing.T) *authz.Middleware {
	t.Helper()
	enforcer, err := authz.NewEnforcer(context.Background(), authz.DefaultEnforcerConfig())
	if err != nil {
		t.Fatalf("NewEnforcer: %v", err)
	}
	t.Cleanup(enforcer.Close)
	return authz.NewMiddleware(enforcer)
}

// newOpenRouter serves the API with authentication off; every caller gets role.
func newOpenRouter(t *testing.T, role string) (http.Handler, *testEnv) {
	t.Helper()
	env := newTestEnv(t, nil)
	authn := auth.NewMiddleware(nil, auth.AuthModeNone, role)
	return NewRouter(env.handler, authn, newTestEnforcer(t), nil).Setup(), env
}

// newJWTRouter serves the API with JWT authentication and an admin login.
func newJWTRouter(t *testing.T) (http.Handler, *auth.JWTManager, *testEnv) {
	t.Helper()
	env := newTestEnv(t, nil)

	jwtManager, err := auth.NewJWTManager(&config.SecurityConfig{JWTSecret: testJWTSecret, SessionTimeout: time.Hour})
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	admin, err := auth.NewAdminCredentials("admin", "Str0ng!Passw0rd", "admin", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewAdminCredentials: %v", err)
	}
	env.handler.jwt = jwtManager
	env.handler.admin = admin

	authn := auth.NewMiddleware(jwtManager, auth.AuthModeJWT, "viewer")
	return NewRouter(env.handler, authn, newTestEnforcer(t), []string{"https://city.example"}).Setup(), jwtManager, env
}

func serve(h http.Handler, method, target, token string, body *strings.Reader) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, body)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRouter_RoleGates(t *testing.T) {
	t.Parallel()

	reportBody := `{"reporterId":"eve","categoryId":"roads","latitude":52.52,"longitude":13.405}`
	tests := []struct {
		name       string
		role       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"viewer reads duplicates", "viewer", http.MethodGet, "/api/v1/duplicates", "", http.StatusOK},
		{"viewer reads geojson", "viewer", http.MethodGet, "/api/v1/duplicates/geojson", "", http.StatusOK},
		{"viewer cannot submit", "viewer", http.MethodPost, "/api/v1/reports", reportBody, http.StatusForbidden},
		{"viewer cannot read history", "viewer", http.MethodGet, "/api/v1/duplicates/history", "", http.StatusForbidden},
		{"operator submits", "operator", http.MethodPost, "/api/v1/reports", reportBody, http.StatusCreated},
		{"operator flags", "operator", http.MethodPost, "/api/v1/reports/r1/important", `{"primaryId":"r1"}`, http.StatusOK},
		{"operator flags unknown report", "operator", http.MethodPost, "/api/v1/reports/nope/important", "", http.StatusNotFound},
		{"operator cannot read history", "operator", http.MethodGet, "/api/v1/duplicates/history", "", http.StatusForbidden},
		{"admin reads history", "admin", http.MethodGet, "/api/v1/duplicates/history", "", http.StatusOK},
		{"superadmin reads duplicates", "superadmin", http.MethodGet, "/api/v1/duplicates", "", http.StatusOK},
		{"unknown role denied", "guest", http.MethodGet, "/api/v1/duplicates", "", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h, _ := newOpenRouter(t, tt.role)
			var body *strings.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			w := serve(h, tt.method, tt.path, "", body)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestRouter_FlagMarksReport(t *testing.T) {
	t.Parallel()

	h, env := newOpenRouter(t, "operator")
	w := serve(h, http.MethodPost, "/api/v1/reports/r2/important", "", strings.NewReader(`{"primaryId":"r1","note":"same pothole"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	env.store.mu.Lock()
	defer env.store.mu.Unlock()
	if len(env.store.flags) != 1 {
		t.Fatalf("flags = %d, want 1", len(env.store.flags))
	}
	flag := env.store.flags[0]
	if flag.ReportID != "r2" || flag.PrimaryID != "r1" || flag.FlaggedBy != auth.AnonymousUser {
		t.Errorf("flag = %+v", flag)
	}
}

func TestRouter_PublicEndpoints(t *testing.T) {
	t.Parallel()

	h, _, _ := newJWTRouter(t)
	for _, path := range []string{"/api/v1/health/live", "/api/v1/health/ready", "/metrics"} {
		if w := serve(h, http.MethodGet, path, "", nil); w.Code != http.StatusOK {
			t.Errorf("%s: status = %d", path, w.Code)
		}
	}
	if w := serve(h, http.MethodGet, "/api/v1/duplicates", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("duplicates without token: status = %d, want 401", w.Code)
	}
}

func TestRouter_LoginFlow(t *testing.T) {
	t.Parallel()

	h, _, _ := newJWTRouter(t)

	w := serve(h, http.MethodPost, "/api/v1/auth/login", "", strings.NewReader(`{"username":"admin","password":"wrong-password"}`))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: status = %d, want 401", w.Code)
	}

	w = serve(h, http.MethodPost, "/api/v1/auth/login", "", strings.NewReader(`{"username":"admin","password":"Str0ng!Passw0rd"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("login: status = %d, body %s", w.Code, w.Body.String())
	}
	var login LoginResponse
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &login); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if login.Token == "" || login.Role != "admin" {
		t.Fatalf("login = %+v", login)
	}
	if cookies := w.Result().Cookies(); len(cookies) != 1 || cookies[0].Name != "token" || !cookies[0].HttpOnly {
		t.Errorf("cookies = %+v", cookies)
	}

	if w := serve(h, http.MethodGet, "/api/v1/duplicates/history", login.Token, nil); w.Code != http.StatusOK {
		t.Errorf("history as admin: status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestRouter_RegionScopedSubject(t *testing.T) {
	t.Parallel()

	h, jwtManager, _ := newJWTRouter(t)
	token, _, err := jwtManager.GenerateToken("north-ops", "operator", "north")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if w := serve(h, http.MethodGet, "/api/v1/duplicates?region=south", token, nil); w.Code != http.StatusForbidden {
		t.Errorf("other region: status = %d, want 403", w.Code)
	}

	w := serve(h, http.MethodGet, "/api/v1/duplicates", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("own region: status = %d", w.Code)
	}
	resp := decodeEnvelope(t, w)
	if resp.Meta == nil || resp.Meta.Detection == nil || resp.Meta.Detection.Region != "north" {
		t.Errorf("meta = %+v, want region defaulted to north", resp.Meta)
	}

	body := strings.NewReader(`{"reporterId":"x","categoryId":"roads","region":"south","latitude":48.1,"longitude":11.5}`)
	if w := serve(h, http.MethodPost, "/api/v1/reports", token, body); w.Code != http.StatusForbidden {
		t.Errorf("submit to other region: status = %d, want 403", w.Code)
	}
}

func TestRouter_RegionScopedWrites(t *testing.T) {
	t.Parallel()

	h, jwtManager, env := newJWTRouter(t)
	token, _, err := jwtManager.GenerateToken("north-ops", "operator", "north")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	// r3 is a south report; a north operator must not reach it by ID.
	w := serve(h, http.MethodPost, "/api/v1/reports/r3/important", token, strings.NewReader(`{"note":"not mine"}`))
	if w.Code != http.StatusNotFound {
		t.Errorf("flag other region's report: status = %d, want 404", w.Code)
	}

	w = serve(h, http.MethodPost, "/api/v1/reports/r1/important", token, nil)
	if w.Code != http.StatusOK {
		t.Errorf("flag own region's report: status = %d, body %s", w.Code, w.Body.String())
	}

	body := strings.NewReader(`{"id":"r3","reporterId":"mallory","categoryId":"roads","latitude":52.52,"longitude":13.40}`)
	w = serve(h, http.MethodPost, "/api/v1/reports", token, body)
	if w.Code != http.StatusConflict {
		t.Errorf("reuse existing id: status = %d, want 409", w.Code)
	}
	if resp := decodeEnvelope(t, w); resp.Error == nil || resp.Error.Code != ErrCodeConflict {
		t.Errorf("error = %+v, want %s", resp.Error, ErrCodeConflict)
	}

	env.store.mu.Lock()
	defer env.store.mu.Unlock()
	for _, r := range env.store.reports {
		if r.ID != "r3" {
			continue
		}
		if r.Important || r.ReporterID != "carol" || r.Region != "south" {
			t.Errorf("south report changed: %+v", r)
		}
	}
	if len(env.store.flags) != 1 || env.store.flags[0].ReportID != "r1" {
		t.Errorf("flags = %+v, want only r1", env.store.flags)
	}
}

func TestRouter_RequestIDAndCORS(t *testing.T) {
	t.Parallel()

	h, _, _ := newJWTRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/duplicates", nil)
	req.Header.Set("Origin", "https://city.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://city.example" {
		t.Errorf("Allow-Origin = %q", got)
	}

	w = serve(h, http.MethodGet, "/api/v1/health/live", "", nil)
	if w.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("missing request ID header")
	}
	if resp := decodeEnvelope(t, w); resp.Meta == nil || resp.Meta.RequestID != w.Header().Get(middleware.RequestIDHeader) {
		t.Errorf("meta request_id does not match header")
	}
}

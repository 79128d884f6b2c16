// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/civicpulse/internal/auth"
	"github.com/tomtom215/civicpulse/internal/logging"
	"github.com/tomtom215/civicpulse/internal/validation"
)

type loginRequest struct {
	Username string `json:"username" validate:"required,max=128"`
	Password string `json:"password" validate:"required,max=256"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
}

// Login exchanges the admin credentials for a JWT. The token is returned in
// the body and set as an HttpOnly cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.jwt == nil || h.admin == nil {
		rw.Error(http.StatusNotImplemented, ErrCodeNotImplemented, "login is disabled when authentication is off")
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		rw.BadRequest("invalid JSON body")
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError(verr)
		return
	}

	role, err := h.admin.Verify(req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		logging.Ctx(r.Context()).Warn().Str("username", req.Username).Msg("Failed login attempt")
		rw.Unauthorized("invalid username or password")
		return
	}
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Credential check failed")
		rw.InternalError("login failed")
		return
	}

	token, expires, err := h.jwt.GenerateToken(req.Username, role, "")
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to issue token")
		rw.InternalError("login failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})

	logging.Ctx(r.Context()).Info().Str("username", req.Username).Str("role", role).Msg("User logged in")
	rw.Success(LoginResponse{Token: token, ExpiresAt: expires, Username: req.Username, Role: role})
}

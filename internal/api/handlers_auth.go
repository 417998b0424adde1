// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/tomtom215/safex/internal/auth"
	"github.com/tomtom215/safex/internal/logging"
	"github.com/tomtom215/safex/internal/models"
	"github.com/tomtom215/safex/internal/store"
	"github.com/tomtom215/safex/internal/validation"
)

// Register creates a console user and starts its first token chain.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeAndValidate(w, r, h.config.MaxBodyBytes, &req); err != nil {
		writeServiceError(w, r, err, 0)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validation.DefaultPasswordPolicy().Check(req.Password, req.Email); err != nil {
		writeServiceError(w, r, validation.Invalid("password", err.Error()), 0)
		return
	}

	user, pair, err := h.auth.Register(r.Context(), auth.RegisterInput{
		Email:        req.Email,
		Password:     req.Password,
		Name:         strings.TrimSpace(req.Name),
		Phone:        req.Phone,
		Organization: strings.TrimSpace(req.Organization),
	})
	if errors.Is(err, store.ErrConflict) {
		NewResponseWriter(w, r).Conflict(models.CodeConflict, "email already registered")
		return
	}
	if err != nil {
		writeServiceError(w, r, err, 0)
		return
	}

	h.audit.LogRegistration(user.ID, user.Email, clientIP(r))
	NewResponseWriter(w, r).Created(pair)
}

// Login exchanges email and password for a token pair.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeAndValidate(w, r, h.config.MaxBodyBytes, &req); err != nil {
		writeServiceError(w, r, err, 0)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	user, pair, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) || errors.Is(err, auth.ErrAuthRevoked) {
			h.audit.LogLoginFailure(req.Email, clientIP(r), r.UserAgent(), err.Error())
		}
		writeServiceError(w, r, err, 0)
		return
	}

	h.audit.LogLoginSuccess(user.ID, user.Email, clientIP(r), r.UserAgent())
	NewResponseWriter(w, r).Success(pair)
}

// Refresh rotates a refresh token. A reused token revokes every chain of
// its user and yields CHAIN_COMPROMISED.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := decodeAndValidate(w, r, h.config.MaxBodyBytes, &req); err != nil {
		writeServiceError(w, r, err, 0)
		return
	}

	pair, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, r, err, 0)
		return
	}
	NewResponseWriter(w, r).Success(pair)
}

// Logout revokes a refresh token.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := decodeAndValidate(w, r, h.config.MaxBodyBytes, &req); err != nil {
		writeServiceError(w, r, err, 0)
		return
	}

	if err := h.auth.Revoke(r.Context(), req.RefreshToken); err != nil {
		writeServiceError(w, r, err, 0)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

// Me returns the authenticated user.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p := principal(r.Context())
	if p == nil || p.Kind != auth.PrincipalUser {
		writeServiceError(w, r, auth.ErrAuthInvalid, 0)
		return
	}

	user, err := h.auth.GetUser(r.Context(), p.ID)
	if errors.Is(err, store.ErrNotFound) {
		// Token outlived its user.
		logging.Ctx(r.Context()).Warn().Str("user_id", p.ID).Msg("access token for unknown user")
		writeServiceError(w, r, auth.ErrAuthRevoked, 0)
		return
	}
	if err != nil {
		writeServiceError(w, r, err, 0)
		return
	}
	NewResponseWriter(w, r).Success(user)
}

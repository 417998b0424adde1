// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package api

import (
	"errors"
	"net/http"
	"time"

	gws "github.com/gorilla/websocket"

	"github.com/tomtom215/safex/internal/auth"
	"github.com/tomtom215/safex/internal/authz"
	"github.com/tomtom215/safex/internal/logging"
	"github.com/tomtom215/safex/internal/websocket"
)

// WebSocket upgrades a monitoring console connection. The access token is
// read from the token query parameter or the Authorization header and is
// verified before the upgrade, so a bad token gets a plain 401.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	claims, err := h.auth.VerifyAccess(auth.WebSocketToken(r))
	if err != nil {
		writeServiceError(w, r, err, 0)
		return
	}
	p := auth.PrincipalFromClaims(claims)

	allowed, err := h.enforcer.Enforce(p.Role, authz.ObjectMonitoring, authz.ActionConnect)
	if err != nil {
		writeServiceError(w, r, err, 0)
		return
	}
	if !allowed {
		writeServiceError(w, r, auth.ErrForbidden, 0)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written the HTTP error.
		logging.Ctx(r.Context()).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	session, err := websocket.NewSession(conn, p, h.config.Session)
	if err == nil {
		err = h.hub.Register(session)
	}
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Str("user_id", p.ID).Msg("monitoring session rejected")
		reason := "session rejected"
		if errors.Is(err, auth.ErrAuthExpired) {
			reason = "token expired"
		}
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(gws.CloseMessage, gws.FormatCloseMessage(gws.ClosePolicyViolation, reason), deadline)
		_ = conn.Close()
		return
	}
	session.Start(h.hub)
}

// checkWebSocketOrigin validates WebSocket connection origins
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		// Non-browser clients authenticate with the token alone.
		return true
	}
	for _, allowed := range h.config.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Ctx(r.Context()).Warn().Str("origin", origin).Msg("websocket connection rejected from unauthorized origin")
	return false
}

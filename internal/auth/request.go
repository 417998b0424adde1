// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package auth

import (
	"net/http"
	"strings"
)

// APIKeyHeader carries agent API keys.
const APIKeyHeader = "X-API-Key"

// BearerToken extracts the token from an "Authorization: Bearer" header.
// The scheme is matched case-insensitively.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// WebSocketToken extracts an access token from the "token" query parameter,
// falling back to the Authorization header. Browsers cannot set headers on
// a WebSocket handshake.
func WebSocketToken(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	return BearerToken(r)
}

// AgentCredentialsFromRequest collects the credentials an agent presented.
func AgentCredentialsFromRequest(r *http.Request) AgentCredentials {
	return AgentCredentials{
		APIKey:      strings.TrimSpace(r.Header.Get(APIKeyHeader)),
		BearerToken: BearerToken(r),
	}
}

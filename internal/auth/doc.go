// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

/*
Package auth implements the SafeX token lifecycle.

# Tokens

Access tokens are HS256 JWTs carrying the user id (sub), role, issue and
expiry times, a unique jti and the rotation chain id (cid). They are
verified without touching the store, so every API call and WebSocket
handshake pays only for an HMAC.

Refresh tokens are 256 random bits, base64url encoded for the client. Only
their SHA-256 hash is persisted. Each refresh rotates the token: the old
record is compare-and-revoked and a successor in the same chain is issued.

# Reuse detection

Presenting a refresh token that has already been rotated or revoked is
treated as theft. Every unrevoked refresh token of that user is revoked in
the same transaction and the caller receives ErrChainCompromised. Access
tokens already issued stay valid until they expire.

# Agents

Detection agents authenticate with an X-API-Key header or with a bearer
access token whose role is "agent". See AgentAuthenticator.

# Error kinds

	ErrAuthExpired       token past its expiry (refresh and retry)
	ErrAuthInvalid       malformed, unknown, or badly signed
	ErrAuthRevoked       logged out or user disabled
	ErrChainCompromised  refresh reuse detected, log in again
*/
package auth

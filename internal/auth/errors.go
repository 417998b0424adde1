// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package auth

import "errors"

var (
	// ErrAuthExpired indicates the token is past its expiry.
	ErrAuthExpired = errors.New("auth: token expired")

	// ErrAuthInvalid indicates a malformed, unknown or badly signed token.
	ErrAuthInvalid = errors.New("auth: token invalid")

	// ErrAuthRevoked indicates the token was revoked or its user disabled.
	ErrAuthRevoked = errors.New("auth: token revoked")

	// ErrChainCompromised indicates a refresh token was presented after it
	// had been rotated. All of the user's refresh tokens are now revoked.
	ErrChainCompromised = errors.New("auth: refresh token reuse detected")

	// ErrInvalidCredentials is returned by Login for an unknown email or a
	// wrong password alike.
	ErrInvalidCredentials = errors.New("auth: invalid email or password")

	// ErrForbidden indicates an authenticated principal lacks the role for
	// an operation.
	ErrForbidden = errors.New("auth: forbidden")
)

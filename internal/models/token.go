// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package models

import "time"

// RefreshToken is the stored record of an issued refresh token. The raw
// token is never stored; TokenHash is the hex SHA-256 of it.
//
// Tokens derived from one login share a ChainID. Presenting a token that is
// already revoked revokes every chain of the owning user.
type RefreshToken struct {
	TokenHash  string     `json:"token_hash"`
	UserID     string     `json:"user_id"`
	ChainID    string     `json:"chain_id"`
	IssuedAt   time.Time  `json:"issued_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	Revoked    bool       `json:"revoked"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	ReplacedBy string     `json:"replaced_by,omitempty"`
}

// IsExpired reports whether the token has expired at now.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// IsActive reports whether the token may still be exchanged at now.
func (t *RefreshToken) IsActive(now time.Time) bool {
	return !t.Revoked && !t.IsExpired(now)
}

// TokenPair is the response body shape of register, login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinSecretLength is the shortest HMAC secret NewTokenManager accepts.
const MinSecretLength = 32

// Claims represents access-token claims.
type Claims struct {
	Role    string `json:"role"`
	ChainID string `json:"cid"`
	jwt.RegisteredClaims
}

// UserID returns the subject claim.
func (c *Claims) UserID() string { return c.Subject }

// TokenManagerConfig configures NewTokenManager.
type TokenManagerConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration

	// Leeway tolerates clock skew between issuer and verifier.
	Leeway time.Duration

	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
}

// TokenManager signs and verifies access tokens.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	parser *jwt.Parser
	now    func() time.Time
}

// NewTokenManager creates a TokenManager using HMAC-SHA256.
//
// The secret must be at least MinSecretLength bytes. Verification only
// accepts HS256, which rejects "none" and algorithm-confusion tokens.
func NewTokenManager(cfg TokenManagerConfig) (*TokenManager, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("JWT secret must be at least %d bytes", MinSecretLength)
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("access token TTL must be positive")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(cfg.Leeway),
		jwt.WithTimeFunc(now),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	return &TokenManager{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    cfg.TTL,
		parser: jwt.NewParser(opts...),
		now:    now,
	}, nil
}

// TTL returns the access-token lifetime.
func (m *TokenManager) TTL() time.Duration { return m.ttl }

// Generate signs an access token for userID in chainID and returns it with
// its expiry.
func (m *TokenManager) Generate(userID, role, chainID string) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)
	claims := &Claims{
		Role:    role,
		ChainID: chainID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks signature and expiry. It never touches the store.
//
// An expired token yields ErrAuthExpired; everything else that fails
// (bad signature, wrong algorithm, missing claims, garbage) yields
// ErrAuthInvalid. The underlying jwt error is wrapped for logging.
func (m *TokenManager) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrAuthInvalid
	}

	claims := &Claims{}
	token, err := m.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrAuthExpired, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrAuthInvalid, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrAuthInvalid
	}
	return claims, nil
}

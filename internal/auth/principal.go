// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package auth

import (
	"context"
	"time"

	"github.com/tomtom215/safex/internal/models"
)

// PrincipalKind distinguishes console users from detection agents.
type PrincipalKind string

const (
	PrincipalUser  PrincipalKind = "user"
	PrincipalAgent PrincipalKind = "agent"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	Kind PrincipalKind
	// ID is the user id, or the agent label for API-key agents.
	ID      string
	Role    string
	ChainID string
	// ExpiresAt is zero for API-key agents.
	ExpiresAt time.Time
}

// PrincipalFromClaims builds the principal described by verified claims.
func PrincipalFromClaims(c *Claims) *Principal {
	p := &Principal{Kind: PrincipalUser, ID: c.Subject, Role: c.Role, ChainID: c.ChainID}
	if c.ExpiresAt != nil {
		p.ExpiresAt = c.ExpiresAt.Time
	}
	if c.Role == models.RoleAgent {
		p.Kind = PrincipalAgent
	}
	return p
}

type contextKey string

const principalContextKey contextKey = "principal"

// ContextWithPrincipal returns ctx carrying p.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFromContext returns the principal set by the auth middleware.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(*Principal)
	return p, ok && p != nil
}

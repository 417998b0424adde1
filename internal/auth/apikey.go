// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package auth

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/tomtom215/safex/internal/models"
)

// AgentCredentials carries whatever an agent presented on a request.
type AgentCredentials struct {
	APIKey      string
	BearerToken string
}

// AgentAuthenticator authenticates detection agents by API key or by an
// access token whose role is agent.
type AgentAuthenticator struct {
	keys   [][]byte
	tokens *TokenManager
}

// NewAgentAuthenticator creates an authenticator. Blank keys are ignored.
// Key i (zero based, after dropping blanks) is labelled "agent-<i+1>".
func NewAgentAuthenticator(apiKeys []string, tokens *TokenManager) *AgentAuthenticator {
	a := &AgentAuthenticator{tokens: tokens}
	for _, k := range apiKeys {
		if k = strings.TrimSpace(k); k != "" {
			a.keys = append(a.keys, []byte(k))
		}
	}
	return a
}

// Authenticate resolves creds to an agent principal. An API key takes
// precedence over a bearer token.
func (a *AgentAuthenticator) Authenticate(creds AgentCredentials) (*Principal, error) {
	if creds.APIKey != "" {
		return a.authenticateKey(creds.APIKey)
	}
	if creds.BearerToken == "" || a.tokens == nil {
		return nil, ErrAuthInvalid
	}

	claims, err := a.tokens.Verify(creds.BearerToken)
	if err != nil {
		return nil, err
	}
	if claims.Role != models.RoleAgent {
		return nil, ErrForbidden
	}
	return PrincipalFromClaims(claims), nil
}

// authenticateKey compares against every configured key so the time taken
// does not reveal which key, if any, matched.
func (a *AgentAuthenticator) authenticateKey(key string) (*Principal, error) {
	presented := []byte(key)
	match := -1
	for i, k := range a.keys {
		if subtle.ConstantTimeCompare(presented, k) == 1 && match < 0 {
			match = i
		}
	}
	if match < 0 {
		return nil, ErrAuthInvalid
	}
	return &Principal{
		Kind: PrincipalAgent,
		ID:   fmt.Sprintf("agent-%d", match+1),
		Role: models.RoleAgent,
	}, nil
}

// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package api

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/tomtom215/safex/internal/auth"
	"github.com/tomtom215/safex/internal/logging"
)

// ChiMiddlewareConfig holds configuration for Chi middleware factories.
type ChiMiddlewareConfig struct {
	// CORS configuration
	CORSAllowedOrigins   []string
	CORSAllowedMethods   []string
	CORSAllowedHeaders   []string
	CORSExposedHeaders   []string
	CORSAllowCredentials bool
	CORSMaxAge           int // seconds

	// General API limit per client IP.
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Login attempts per client IP.
	LoginRateLimit  int
	LoginRateWindow time.Duration

	// Alert ingestion per agent credential.
	AgentRateLimit  int
	AgentRateWindow time.Duration

	RateLimitDisabled bool
}

// DefaultChiMiddlewareConfig returns a secure default configuration.
// CORS origins default to empty, requiring explicit configuration.
func DefaultChiMiddlewareConfig() *ChiMiddlewareConfig {
	return &ChiMiddlewareConfig{
		CORSAllowedOrigins:   []string{},
		CORSAllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		CORSAllowedHeaders:   []string{"Content-Type", "Authorization", auth.APIKeyHeader, "X-Request-ID"},
		CORSExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		CORSAllowCredentials: false,
		CORSMaxAge:           86400,

		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
		LoginRateLimit:    5,
		LoginRateWindow:   5 * time.Minute,
		AgentRateLimit:    600,
		AgentRateWindow:   time.Minute,
	}
}

// ChiMiddleware provides Chi-compatible middleware factories.
type ChiMiddleware struct {
	config *ChiMiddlewareConfig
	cors   func(http.Handler) http.Handler
}

// NewChiMiddleware creates a new Chi middleware factory with the given configuration.
func NewChiMiddleware(config *ChiMiddlewareConfig) *ChiMiddleware {
	if config == nil {
		config = DefaultChiMiddlewareConfig()
	}

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   config.CORSAllowedOrigins,
		AllowedMethods:   config.CORSAllowedMethods,
		AllowedHeaders:   config.CORSAllowedHeaders,
		ExposedHeaders:   config.CORSExposedHeaders,
		AllowCredentials: config.CORSAllowCredentials,
		MaxAge:           config.CORSMaxAge,
	})

	return &ChiMiddleware{
		config: config,
		cors:   corsHandler,
	}
}

// CORS returns the go-chi/cors handler.
func (m *ChiMiddleware) CORS() func(http.Handler) http.Handler {
	return m.cors
}

// RateLimit limits every API request by client IP.
func (m *ChiMiddleware) RateLimit() func(http.Handler) http.Handler {
	return m.limit(m.config.RateLimitRequests, m.config.RateLimitWindow, httprate.KeyByIP)
}

// RateLimitLogin is the strictest limiter, applied to credential checks.
func (m *ChiMiddleware) RateLimitLogin() func(http.Handler) http.Handler {
	return m.limit(m.config.LoginRateLimit, m.config.LoginRateWindow, httprate.KeyByIP)
}

// RateLimitAgents limits alert ingestion per agent credential, falling back
// to client IP for anonymous requests.
func (m *ChiMiddleware) RateLimitAgents() func(http.Handler) http.Handler {
	return m.limit(m.config.AgentRateLimit, m.config.AgentRateWindow, keyByAgent)
}

func (m *ChiMiddleware) limit(requests int, window time.Duration, key httprate.KeyFunc) func(http.Handler) http.Handler {
	if m.config.RateLimitDisabled || requests <= 0 || window <= 0 {
		return func(next http.Handler) http.Handler {
			return next
		}
	}
	return httprate.Limit(
		requests,
		window,
		httprate.WithKeyFuncs(key),
		httprate.WithLimitHandler(rateLimited),
	)
}

// keyByAgent keys on a digest of the presented credential so raw keys are
// never held by the limiter.
func keyByAgent(r *http.Request) (string, error) {
	creds := auth.AgentCredentialsFromRequest(r)
	secret := creds.APIKey
	if secret == "" {
		secret = creds.BearerToken
	}
	if secret == "" {
		return httprate.KeyByIP(r)
	}
	sum := sha256.Sum256([]byte(secret))
	return "agent:" + hex.EncodeToString(sum[:8]), nil
}

func rateLimited(w http.ResponseWriter, r *http.Request) {
	logging.Ctx(r.Context()).Warn().Str("path", r.URL.Path).Str("remote_addr", r.RemoteAddr).Msg("rate limit exceeded")
	NewResponseWriter(w, r).TooManyRequests("rate limit exceeded")
}

// requireUser verifies the bearer access token and stores the principal.
// Verification is signature and expiry only; it never touches the store.
func (h *Handler) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := h.auth.VerifyAccess(auth.BearerToken(r))
		if err != nil {
			writeServiceError(w, r, err, 0)
			return
		}
		p := auth.PrincipalFromClaims(claims)
		ctx := auth.ContextWithPrincipal(r.Context(), p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

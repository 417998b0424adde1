// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package config

import (
	"fmt"
	"strings"
)

// MinJWTSecretLength is the minimum HS256 secret length in bytes.
const MinJWTSecretLength = 32

// Validate checks that required configuration is present and consistent.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateAuth,
		c.validateDatabase,
		c.validatePubSub,
		c.validateWebSocket,
		c.validateSecurity,
		c.validateLogging,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	switch c.Server.Environment {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("ENVIRONMENT must be development, staging or production, got %q", c.Server.Environment)
	}
	return nil
}

func (c *Config) validateAuth() error {
	if len(c.Auth.JWTSecret) < MinJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", MinJWTSecretLength)
	}
	if c.Auth.AccessTokenTTL <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_TTL must be positive")
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		return fmt.Errorf("REFRESH_TOKEN_TTL (%s) must exceed ACCESS_TOKEN_TTL (%s)",
			c.Auth.RefreshTokenTTL, c.Auth.AccessTokenTTL)
	}
	if c.Auth.ClockSkew < 0 {
		return fmt.Errorf("TOKEN_CLOCK_SKEW must not be negative")
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.Auth.BcryptCost)
	}
	for i, key := range c.Auth.AgentAPIKeys {
		if len(key) < 16 {
			return fmt.Errorf("AGENT_API_KEYS entry %d is shorter than 16 characters", i+1)
		}
	}
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case "badger":
		if !c.Database.InMemory && c.Database.BadgerPath == "" {
			return fmt.Errorf("BADGER_PATH is required when DATABASE_DRIVER=badger")
		}
	case "postgres":
		if c.Database.PostgresDSN == "" {
			return fmt.Errorf("DATABASE_URL is required when DATABASE_DRIVER=postgres")
		}
		if err := validatePostgresDSN(c.Database.PostgresDSN); err != nil {
			return fmt.Errorf("DATABASE_URL is invalid: %w", err)
		}
	default:
		return fmt.Errorf("DATABASE_DRIVER must be badger or postgres, got %q", c.Database.Driver)
	}
	return nil
}

func (c *Config) validatePubSub() error {
	switch c.PubSub.Driver {
	case "memory":
		return nil
	case "nats", "watermill-nats":
	default:
		return fmt.Errorf("PUBSUB_DRIVER must be memory, nats or watermill-nats, got %q", c.PubSub.Driver)
	}

	if err := validateNATSURL(c.NATS.URL); err != nil {
		return fmt.Errorf("NATS_URL is invalid: %w", err)
	}
	if c.PubSub.ReconnectInitial <= 0 || c.PubSub.ReconnectMax < c.PubSub.ReconnectInitial {
		return fmt.Errorf("PUBSUB_RECONNECT_INITIAL must be positive and not exceed PUBSUB_RECONNECT_MAX")
	}
	return nil
}

func (c *Config) validateWebSocket() error {
	ws := c.WebSocket
	if ws.HeartbeatInterval <= 0 || ws.IdleTimeout <= 0 || ws.ProbeTimeout <= 0 || ws.ExpiryCheckInterval <= 0 || ws.StatusInterval <= 0 {
		return fmt.Errorf("websocket intervals must be positive")
	}
	if ws.SendBuffer < 1 {
		return fmt.Errorf("WS_SEND_BUFFER must be at least 1")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	for _, origin := range c.Security.AllowedOrigins {
		if origin == "*" {
			if c.IsProduction() {
				return fmt.Errorf("ALLOWED_ORIGINS must not contain * in production")
			}
			continue
		}
		if err := validateOriginURL(origin); err != nil {
			return fmt.Errorf("ALLOWED_ORIGINS entry %q is invalid: %w", origin, err)
		}
	}
	if !c.Security.RateLimitDisabled && (c.Security.RateLimitRequests < 1 || c.Security.RateLimitWindow <= 0) {
		return fmt.Errorf("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL is invalid: %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

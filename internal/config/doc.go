// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

/*
Package config loads and validates SafeX configuration.

# Configuration Sources

Layers are applied in order, later layers overriding earlier ones:
  - Built-in defaults (defaultConfig)
  - Optional YAML file: CONFIG_PATH, then ./config.yaml, then /etc/safex/config.yaml
  - A .env file in the working directory (never overrides the real environment)
  - Environment variables

Only variables listed in envMappings are read. Unknown variables are ignored.

# Environment Variables

Server:
  - PORT / HTTP_PORT: Listen port (default: 8000)
  - ENVIRONMENT: development, staging or production

Auth:
  - JWT_SECRET / SECRET_KEY: HS256 signing secret (min 32 chars, required)
  - ACCESS_TOKEN_TTL: Access token lifetime (default: 1h)
  - REFRESH_TOKEN_TTL: Refresh token lifetime (default: 720h)
  - TOKEN_CLOCK_SKEW: Verification leeway (default: 5s)
  - AGENT_API_KEYS: Comma-separated agent keys (min 16 chars each)
  - TOKEN_SWEEP_INTERVAL: Expired refresh record cleanup (default: 1h)

Database:
  - DATABASE_DRIVER: badger or postgres (default: badger)
  - BADGER_PATH, DATABASE_IN_MEMORY
  - DATABASE_URL / POSTGRES_DSN: Required for postgres

Pub/sub:
  - PUBSUB_DRIVER: memory, nats or watermill-nats (default: nats)
  - NATS_URL, NATS_EMBEDDED, NATS_HOST, NATS_PORT
  - PUBSUB_RECONNECT_INITIAL / PUBSUB_RECONNECT_MAX: Dispatcher backoff bounds

WebSocket:
  - WS_HEARTBEAT_INTERVAL (30s), WS_IDLE_TIMEOUT (60s), WS_PROBE_TIMEOUT (10s)
  - WS_EXPIRY_CHECK_INTERVAL (60s), WS_STATUS_INTERVAL (60s), WS_SEND_BUFFER (256)

Security:
  - ALLOWED_ORIGINS: Comma-separated CORS origins
  - RATE_LIMIT_REQUESTS / RATE_LIMIT_WINDOW, LOGIN_RATE_LIMIT / LOGIN_RATE_WINDOW
  - AUTHZ_POLICY_PATH: casbin policy CSV (built-in policy when empty)

Logging:
  - LOG_LEVEL, LOG_FORMAT (json or console), LOG_CALLER, SENTRY_DSN

# Usage

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Validation fails fast at startup; the server refuses to run with a short
JWT secret, an unknown driver, or a malformed NATS URL.
*/
package config

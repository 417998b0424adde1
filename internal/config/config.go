// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

// Package config loads SafeX configuration.
//
// Loading order (later layers win):
//  1. Built-in defaults
//  2. Optional YAML file (CONFIG_PATH, ./config.yaml, /etc/safex/config.yaml)
//  3. Environment variables (a .env file in the working directory is read first)
package config

import "time"

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Auth       AuthConfig       `koanf:"auth"`
	Database   DatabaseConfig   `koanf:"database"`
	PubSub     PubSubConfig     `koanf:"pubsub"`
	NATS       NATSConfig       `koanf:"nats"`
	WebSocket  WebSocketConfig  `koanf:"websocket"`
	Security   SecurityConfig   `koanf:"security"`
	Logging    LoggingConfig    `koanf:"logging"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // development, staging, production
}

// AuthConfig holds token lifecycle settings.
type AuthConfig struct {
	JWTSecret       string        `koanf:"jwt_secret"`
	Issuer          string        `koanf:"issuer"`
	AccessTokenTTL  time.Duration `koanf:"access_token_ttl"`
	RefreshTokenTTL time.Duration `koanf:"refresh_token_ttl"`
	ClockSkew       time.Duration `koanf:"clock_skew"`
	BcryptCost      int           `koanf:"bcrypt_cost"`
	AgentAPIKeys    []string      `koanf:"agent_api_keys"`
	SweepInterval   time.Duration `koanf:"sweep_interval"`
}

// DatabaseConfig selects and configures the credential/alert store.
type DatabaseConfig struct {
	Driver          string        `koanf:"driver"` // badger or postgres
	BadgerPath      string        `koanf:"badger_path"`
	InMemory        bool          `koanf:"in_memory"`
	PostgresDSN     string        `koanf:"postgres_dsn"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	RetryBackoff    time.Duration `koanf:"retry_backoff"`
}

// PubSubConfig selects the shared alert channel transport.
type PubSubConfig struct {
	Driver                  string        `koanf:"driver"` // memory, nats, watermill-nats
	BreakerFailureThreshold uint32        `koanf:"breaker_failure_threshold"`
	BreakerTimeout          time.Duration `koanf:"breaker_timeout"`
	ReconnectInitial        time.Duration `koanf:"reconnect_initial"`
	ReconnectMax            time.Duration `koanf:"reconnect_max"`
}

// NATSConfig holds NATS client and embedded server settings.
type NATSConfig struct {
	URL            string        `koanf:"url"`
	EmbeddedServer bool          `koanf:"embedded_server"`
	Host           string        `koanf:"host"`
	Port           int           `koanf:"port"`
	ClientName     string        `koanf:"client_name"`
	MaxReconnects  int           `koanf:"max_reconnects"`
	ReconnectWait  time.Duration `koanf:"reconnect_wait"`
}

// WebSocketConfig holds monitoring session timing.
type WebSocketConfig struct {
	HeartbeatInterval   time.Duration `koanf:"heartbeat_interval"`
	IdleTimeout         time.Duration `koanf:"idle_timeout"`
	ProbeTimeout        time.Duration `koanf:"probe_timeout"`
	ExpiryCheckInterval time.Duration `koanf:"expiry_check_interval"`
	StatusInterval      time.Duration `koanf:"status_interval"`
	SendBuffer          int           `koanf:"send_buffer"`
	MaxMessageSize      int64         `koanf:"max_message_size"`
	MessageRate         float64       `koanf:"message_rate"`
	MessageBurst        int           `koanf:"message_burst"`
}

// SecurityConfig holds CORS and rate limiting settings.
type SecurityConfig struct {
	AllowedOrigins    []string      `koanf:"allowed_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	LoginRateLimit    int           `koanf:"login_rate_limit"`
	LoginRateWindow   time.Duration `koanf:"login_rate_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	PolicyPath        string        `koanf:"policy_path"` // casbin CSV; empty uses the built-in policy
	AuthzCacheTTL     time.Duration `koanf:"authz_cache_ttl"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level     string `koanf:"level"`
	Format    string `koanf:"format"`
	Caller    bool   `koanf:"caller"`
	SentryDSN string `koanf:"sentry_dsn"`
}

// SupervisorConfig holds suture tree settings.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold"`
	FailureDecay     float64       `koanf:"failure_decay"`
	FailureBackoff   time.Duration `koanf:"failure_backoff"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`
}

// Load reads configuration from defaults, config file and environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

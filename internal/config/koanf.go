// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order; the first existing file wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/safex/config.yaml",
	"/etc/safex/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// DotEnvPath is loaded into the process environment before the env layer.
var DotEnvPath = ".env"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		Auth: AuthConfig{
			Issuer:          "safex",
			AccessTokenTTL:  time.Hour,
			RefreshTokenTTL: 30 * 24 * time.Hour,
			ClockSkew:       5 * time.Second,
			BcryptCost:      12,
			SweepInterval:   time.Hour,
		},
		Database: DatabaseConfig{
			Driver:          "badger",
			BadgerPath:      "/data/safex/badger",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			RetryBackoff:    50 * time.Millisecond,
		},
		PubSub: PubSubConfig{
			Driver:                  "nats",
			BreakerFailureThreshold: 5,
			BreakerTimeout:          30 * time.Second,
			ReconnectInitial:        100 * time.Millisecond,
			ReconnectMax:            30 * time.Second,
		},
		NATS: NATSConfig{
			URL:            "nats://127.0.0.1:4222",
			EmbeddedServer: true,
			Host:           "127.0.0.1",
			Port:           4222,
			ClientName:     "safex",
			MaxReconnects:  -1,
			ReconnectWait:  2 * time.Second,
		},
		WebSocket: WebSocketConfig{
			HeartbeatInterval:   30 * time.Second,
			IdleTimeout:         60 * time.Second,
			ProbeTimeout:        10 * time.Second,
			ExpiryCheckInterval: 60 * time.Second,
			StatusInterval:      60 * time.Second,
			SendBuffer:          256,
			MaxMessageSize:      64 * 1024,
			MessageRate:         10,
			MessageBurst:        20,
		},
		Security: SecurityConfig{
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
			LoginRateLimit:    5,
			LoginRateWindow:   5 * time.Minute,
			AuthzCacheTTL:     5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
	}
}

// LoadWithKoanf layers defaults, the optional YAML file and environment
// variables, then validates the result.
func LoadWithKoanf() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadDotEnv reads DotEnvPath if present. Variables already set in the
// environment are not overwritten.
func loadDotEnv() error {
	if _, err := os.Stat(DotEnvPath); err != nil {
		return nil
	}
	if err := godotenv.Load(DotEnvPath); err != nil {
		return fmt.Errorf("failed to load %s: %w", DotEnvPath, err)
	}
	return nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are split on commas when they arrive as a single string.
var sliceConfigPaths = []string{
	"security.allowed_origins",
	"auth.agent_api_keys",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	// Server
	"host":             "server.host",
	"port":             "server.port",
	"http_port":        "server.port",
	"read_timeout":     "server.read_timeout",
	"write_timeout":    "server.write_timeout",
	"shutdown_timeout": "server.shutdown_timeout",
	"environment":      "server.environment",

	// Auth
	"jwt_secret":           "auth.jwt_secret",
	"secret_key":           "auth.jwt_secret",
	"jwt_issuer":           "auth.issuer",
	"access_token_ttl":     "auth.access_token_ttl",
	"refresh_token_ttl":    "auth.refresh_token_ttl",
	"token_clock_skew":     "auth.clock_skew",
	"bcrypt_cost":          "auth.bcrypt_cost",
	"agent_api_keys":       "auth.agent_api_keys",
	"token_sweep_interval": "auth.sweep_interval",

	// Database
	"database_driver":      "database.driver",
	"badger_path":          "database.badger_path",
	"database_in_memory":   "database.in_memory",
	"database_url":         "database.postgres_dsn",
	"postgres_dsn":         "database.postgres_dsn",
	"db_max_open_conns":    "database.max_open_conns",
	"db_max_idle_conns":    "database.max_idle_conns",
	"db_conn_max_lifetime": "database.conn_max_lifetime",
	"db_retry_backoff":     "database.retry_backoff",

	// Pub/sub
	"pubsub_driver":            "pubsub.driver",
	"pubsub_breaker_threshold": "pubsub.breaker_failure_threshold",
	"pubsub_breaker_timeout":   "pubsub.breaker_timeout",
	"pubsub_reconnect_initial": "pubsub.reconnect_initial",
	"pubsub_reconnect_max":     "pubsub.reconnect_max",

	// NATS
	"nats_url":            "nats.url",
	"nats_embedded":       "nats.embedded_server",
	"nats_host":           "nats.host",
	"nats_port":           "nats.port",
	"nats_client_name":    "nats.client_name",
	"nats_max_reconnects": "nats.max_reconnects",
	"nats_reconnect_wait": "nats.reconnect_wait",

	// WebSocket
	"ws_heartbeat_interval":    "websocket.heartbeat_interval",
	"ws_idle_timeout":          "websocket.idle_timeout",
	"ws_probe_timeout":         "websocket.probe_timeout",
	"ws_expiry_check_interval": "websocket.expiry_check_interval",
	"ws_status_interval":       "websocket.status_interval",
	"ws_send_buffer":           "websocket.send_buffer",
	"ws_max_message_size":      "websocket.max_message_size",
	"ws_message_rate":          "websocket.message_rate",
	"ws_message_burst":         "websocket.message_burst",

	// Security
	"allowed_origins":     "security.allowed_origins",
	"rate_limit_requests": "security.rate_limit_requests",
	"rate_limit_window":   "security.rate_limit_window",
	"login_rate_limit":    "security.login_rate_limit",
	"login_rate_window":   "security.login_rate_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"authz_policy_path":   "security.policy_path",
	"authz_cache_ttl":     "security.authz_cache_ttl",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
	"sentry_dsn": "logging.sentry_dsn",

	// Supervisor
	"supervisor_failure_threshold": "supervisor.failure_threshold",
	"supervisor_failure_decay":     "supervisor.failure_decay",
	"supervisor_failure_backoff":   "supervisor.failure_backoff",
	"supervisor_shutdown_timeout":  "supervisor.shutdown_timeout",
}

// envTransformFunc maps an environment variable name to its koanf path.
//
//	JWT_SECRET     -> auth.jwt_secret
//	DATABASE_URL   -> database.postgres_dsn
//	WS_IDLE_TIMEOUT -> websocket.idle_timeout
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

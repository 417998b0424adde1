// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

// Package logging provides centralized zerolog-based structured logging for SafeX.
//
// # Quick Start
//
//	import "github.com/tomtom215/safex/internal/logging"
//
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	logging.Info().Str("alert_id", id).Str("feed_id", feed).Msg("Alert created")
//	logging.Error().Err(err).Msg("Publish failed")
//
//	// Request-scoped logging picks up request_id and correlation_id
//	logging.Ctx(ctx).Warn().Msg("Retrying store write")
//
// # Configuration
//
// Environment variables (mapped by internal/config):
//
//	LOG_LEVEL   - trace, debug, info, warn, error (default: info)
//	LOG_FORMAT  - json, console (default: json)
//	LOG_CALLER  - include caller file:line (default: false)
//	SENTRY_DSN  - forward error-level events to Sentry when set
//
// # Field Conventions
//
// Use snake_case field names and the shared identifiers so logs join up
// across components: alert_id, feed_id, session_id, user_id, chain_id,
// request_id, correlation_id. Never log passwords, raw tokens or API keys;
// SecurityLogger masks them for the auth audit trail.
//
// # Suture Integration
//
// NewSlogLogger returns a *slog.Logger backed by zerolog. It is handed to
// sutureslog so supervisor events share the same output and format.
//
// # Testing
//
// Silence output in test packages:
//
//	func init() {
//	    logging.Init(logging.Config{Level: "info", Format: "console", Output: io.Discard})
//	}
//
// Capture output with NewTestLogger(&buf) when asserting on fields.
package logging

// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

/*
Package main is the entry point for the SafeX server.

SafeX receives alerts from detection agents over HTTP, persists them and
pushes them to monitoring consoles over WebSocket. Any number of processes
can run behind a load balancer: every process publishes committed alerts to
a shared NATS subject and every process's dispatcher fans them out to its
own connected consoles.

# Process Layout

	RootSupervisor ("safex")
	├── DataSupervisor ("data-layer")
	│   ├── EmbeddedNATSService (NATS_EMBEDDED_SERVER=true)
	│   └── TokenSweeperService
	├── MessagingSupervisor ("messaging-layer")
	│   ├── HubService
	│   └── DispatcherService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Startup order:

 1. Configuration: koanf v2 (defaults, config.yaml, .env, environment)
 2. Logging: zerolog, optional Sentry forwarding
 3. Store: Badger (single node) or PostgreSQL
 4. Bus: embedded or external NATS, guarded by a circuit breaker
 5. Services: token lifecycle, alert publisher, casbin authorization
 6. Dispatcher: binds the shared alert subscription; failure aborts startup
 7. Supervisor tree and HTTP server

# Shutdown

On SIGINT or SIGTERM the dispatcher is stopped first so no broadcast races
the hub teardown, then the tree is cancelled: the HTTP server drains, the
hub closes every session with 1001, and the bus and store are closed last.

# Example

	export JWT_SECRET=$(openssl rand -base64 48)
	export AGENT_API_KEYS=key-for-camera-agents-0001
	export SECURITY_ALLOWED_ORIGINS=https://console.example.com
	./safex
*/
package main

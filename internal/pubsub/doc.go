// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

/*
Package pubsub is the shared channel between alert publishers and the
fan-out dispatchers of every SafeX process.

A Bus publishes opaque byte payloads to a topic and hands out subscription
channels. Every subscriber receives every message published after its
subscription was bound; there are no queue groups and no persistence.

Transports:

  - NATSBus: core NATS via nats.go
  - WatermillBus: Watermill over NATS (watermill-nats, JetStream disabled)
    or over an in-process GoChannel
  - EmbeddedServer: an in-process nats-server for single-node deployments

BreakerBus wraps any Bus with a gobreaker circuit breaker so that publishes
fail fast with ErrChannelUnavailable while the transport is down.

A subscription channel is closed when its context is cancelled, when the
bus is closed, or when the transport gives up on the connection. Callers
that need a long-lived subscription resubscribe when the channel closes.
*/
package pubsub

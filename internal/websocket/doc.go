// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

/*
Package websocket delivers alert notifications to live monitoring consoles.

Key Components:

  - Hub: the per-process registry of monitoring sessions. It is owned by
    main and passed by reference; there is no package-level state.
  - Session: one WebSocket connection with a read pump, a write pump and an
    explicit lifecycle state machine.
  - Dispatcher: the single subscriber per process that reads the shared
    alert channel and hands each notification to Hub.Broadcast.

Architecture:

	agents ──► alerts.Service ──publish──► pubsub.Bus (safex.alerts)
	                                            │
	              ┌─────────────────────────────┘ one subscription per process
	              ▼
	         Dispatcher ──► Hub.Broadcast(predicate, frame)
	                             │ snapshot under RLock, send outside it
	               ┌─────────────┼─────────────┐
	               ▼             ▼             ▼
	           Session 1     Session 2     Session 3   (buffered send queues)

Broadcast never blocks: a session whose send queue is full is closed and
unregistered, and the remaining sessions still receive the frame.

Session Lifecycle:

	Connecting → Authenticated → Subscribed → Active ⇄ Idle → Closing → Closed

A session is Authenticated once the handshake token has been verified. A
subscribe message with a topic ("*" or a feed id) moves it to Subscribed and
then Active. When no inbound traffic arrives for the idle window the session
becomes Idle and is sent a WebSocket ping; any inbound frame, pongs included,
returns it to Active. No traffic within the probe timeout closes it. Other
transitions fail with ErrInvalidTransition.

The hub re-checks every session's access-token expiry on a fixed interval and
closes expired ones with code 1008 ("token expired"). Clients reconnect with a
refreshed token.

Protocol:

Client to server:

	{"type":"subscribe","topic":"cam-1"}   → {"type":"subscription:confirmed","topic":"cam-1"}
	{"type":"ping"}                        → {"type":"pong"}

Server to client:

	{"type":"connection:established","connection_id":"...","user_id":"..."}
	{"type":"alert","alert_id":"...","feed_id":"cam-1","severity":"high",...}
	{"type":"alert:resolved","alert_id":"...","resolved_by":"...","status":"resolved",...}
	{"type":"heartbeat","timestamp":"..."}
	{"type":"error","message":"..."}

Shutdown:

The dispatcher is stopped before the hub so no broadcast runs against a
registry that is closing its sessions.
*/
package websocket

// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

/*
Package services adapts SafeX components to suture's Serve pattern.

# Available Services

HTTPServerService:
  - Wraps *http.Server; Shutdown drains connections on cancellation

HubService:
  - Runs (*websocket.Hub).Run, the token expiry sweep
  - Cancellation closes every session with 1001

DispatcherService:
  - Keeps the alert dispatcher bound to the shared channel
  - Returns suture.ErrDoNotRestart once the dispatcher was stopped

TokenSweeperService:
  - Deletes expired refresh-token records on an interval

EmbeddedNATSService:
  - Owns an in-process NATS server for single node deployments

# Error Handling

Return values determine supervisor behavior:

	error                  -> crashed, restarted with backoff
	ctx.Err()              -> shutdown requested
	suture.ErrDoNotRestart -> finished for good

Every service implements fmt.Stringer so suture's event log names it.
*/
package services

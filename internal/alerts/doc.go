// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

/*
Package alerts persists detection alerts raised by agents and announces them
on the shared alert channel.

Every mutation follows the same order:

 1. Authenticate and validate.
 2. Write the alert inside a store transaction.
 3. After the commit, publish an AlertNotification on models.TopicAlerts.

A notification is never published for an alert that failed to persist. The
reverse is allowed: when the channel is down the publish error is logged
and counted (safex_alert_publish_failures_total), and the alert remains
available through GetAlert and ListAlerts. Clients reconnecting after an
outage catch up through the list endpoint.

Publishes go through whatever pubsub.Publisher the caller supplies; in
production that is a pubsub.BreakerBus so a dead transport fails fast
instead of adding latency to every alert.
*/
package alerts

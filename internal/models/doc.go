// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

/*
Package models defines the data structures shared across SafeX: users,
refresh-token records, alerts, bus notifications and the HTTP response
envelope.

Models carry JSON tags for the wire formats and no behavior beyond small
predicates. Persistence lives in package store, validation rules in package
validation.
*/
package models

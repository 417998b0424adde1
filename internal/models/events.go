// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package models

import (
	"time"

	"github.com/goccy/go-json"
)

// TopicAlerts is the shared channel every process publishes alert
// notifications to and every dispatcher subscribes to.
const TopicAlerts = "safex.alerts"

// Notification event discriminators.
const (
	EventAlertCreated  = "alert.created"
	EventAlertResolved = "alert.resolved"
)

// AlertNotification is the bus payload published after an alert commit.
// It carries summary fields only; clients fetch the full alert by id.
type AlertNotification struct {
	Event      string          `json:"event"`
	AlertID    string          `json:"alert_id"`
	FeedID     string          `json:"feed_id"`
	Severity   Severity        `json:"severity"`
	AlertType  AlertType       `json:"alert_type,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Status     AlertStatus     `json:"status,omitempty"`
	ResolvedBy string          `json:"resolved_by,omitempty"`
	ResolvedAt *time.Time      `json:"resolved_at,omitempty"`
}

// NewAlertCreatedNotification builds the alert.created notification for a.
func NewAlertCreatedNotification(a *Alert) AlertNotification {
	return AlertNotification{
		Event:     EventAlertCreated,
		AlertID:   a.ID,
		FeedID:    a.FeedID,
		Severity:  a.Severity,
		AlertType: a.AlertType,
		Timestamp: a.Timestamp,
		Payload:   a.Payload,
	}
}

// NewAlertResolvedNotification builds the alert.resolved notification for a.
func NewAlertResolvedNotification(a *Alert) AlertNotification {
	return AlertNotification{
		Event:      EventAlertResolved,
		AlertID:    a.ID,
		FeedID:     a.FeedID,
		Severity:   a.Severity,
		AlertType:  a.AlertType,
		Timestamp:  a.Timestamp,
		Status:     a.Status,
		ResolvedBy: a.ResolvedBy,
		ResolvedAt: a.ResolvedAt,
	}
}

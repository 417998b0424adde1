// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package models

import (
	"time"

	"github.com/goccy/go-json"
)

// Severity represents the urgency of an alert.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AlertType classifies what the detector saw.
type AlertType string

const (
	AlertTypeIntrusion AlertType = "intrusion"
	AlertTypeFire      AlertType = "fire"
	AlertTypeWeapon    AlertType = "weapon"
	AlertTypeFight     AlertType = "fight"
	AlertTypeFall      AlertType = "fall"
	AlertTypeCrowd     AlertType = "crowd"
	AlertTypeOther     AlertType = "other"
)

// AlertStatus is the lifecycle state of an alert.
type AlertStatus string

const (
	AlertStatusActive     AlertStatus = "active"
	AlertStatusResolved   AlertStatus = "resolved"
	AlertStatusFalseAlarm AlertStatus = "false_alarm"
)

// Alert is a durable detection event raised by an agent for a camera feed.
// It is created once, mutated only by resolve, and never deleted.
type Alert struct {
	ID              string          `json:"id"`
	FeedID          string          `json:"feed_id"`
	Severity        Severity        `json:"severity"`
	AlertType       AlertType       `json:"alert_type"`
	Status          AlertStatus     `json:"status"`
	Title           string          `json:"title,omitempty"`
	Description     string          `json:"description,omitempty"`
	Confidence      *float64        `json:"confidence,omitempty"`
	VideoURL        string          `json:"video_url,omitempty"`
	ThumbnailURL    string          `json:"thumbnail_url,omitempty"`
	Payload         json.RawMessage `json:"payload,omitempty"`
	Source          string          `json:"source"`
	Timestamp       time.Time       `json:"timestamp"`
	Resolved        bool            `json:"resolved"`
	ResolvedBy      string          `json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time      `json:"resolved_at,omitempty"`
	ResolutionNotes string          `json:"resolution_notes,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// AlertFilter narrows ListAlerts results.
type AlertFilter struct {
	FeedID string
	Status AlertStatus
	Limit  int
}

// Resolution carries the fields written by a resolve operation.
type Resolution struct {
	Status     AlertStatus
	ResolvedBy string
	ResolvedAt time.Time
	Notes      string
}

// ValidSeverities lists accepted severity values.
var ValidSeverities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// ValidAlertTypes lists accepted alert type values.
var ValidAlertTypes = []AlertType{
	AlertTypeIntrusion, AlertTypeFire, AlertTypeWeapon, AlertTypeFight,
	AlertTypeFall, AlertTypeCrowd, AlertTypeOther,
}

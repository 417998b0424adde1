// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package websocket

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/safex/internal/models"
)

// Message types.
const (
	TypeConnectionEstablished = "connection:established"
	TypeSubscribe             = "subscribe"
	TypeSubscriptionConfirmed = "subscription:confirmed"
	TypePing                  = "ping"
	TypePong                  = "pong"
	TypeError                 = "error"
	TypeAlert                 = "alert"
	TypeAlertResolved         = "alert:resolved"
	TypeHeartbeat             = "heartbeat"
	TypeSystemStatus          = "system:status"
)

// TopicAll subscribes a session to every feed.
const TopicAll = "*"

// ClientMessage is a frame sent by a console.
type ClientMessage struct {
	Type  string `json:"type"`
	Topic string `json:"topic,omitempty"`
}

// Message is a frame sent to a console. Fields not used by a type are
// omitted.
type Message struct {
	Type         string             `json:"type"`
	ConnectionID string             `json:"connection_id,omitempty"`
	UserID       string             `json:"user_id,omitempty"`
	Topic        string             `json:"topic,omitempty"`
	Detail       string             `json:"message,omitempty"`
	AlertID      string             `json:"alert_id,omitempty"`
	FeedID       string             `json:"feed_id,omitempty"`
	Severity     models.Severity    `json:"severity,omitempty"`
	AlertType    models.AlertType   `json:"alert_type,omitempty"`
	Timestamp    *time.Time         `json:"timestamp,omitempty"`
	Payload      json.RawMessage    `json:"payload,omitempty"`
	Status       models.AlertStatus `json:"status,omitempty"`
	ResolvedBy   string             `json:"resolved_by,omitempty"`
	ResolvedAt   *time.Time         `json:"resolved_at,omitempty"`
	Sessions     *int               `json:"sessions,omitempty"`
	BusConnected *bool              `json:"bus_connected,omitempty"`
}

// MarshalMessage encodes msg.
func MarshalMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// NotificationMessage converts a bus notification into the frame consoles
// receive. ok is false for unknown events.
func NotificationMessage(n models.AlertNotification) (msg Message, ok bool) {
	ts := n.Timestamp
	switch n.Event {
	case models.EventAlertCreated:
		return Message{
			Type:      TypeAlert,
			AlertID:   n.AlertID,
			FeedID:    n.FeedID,
			Severity:  n.Severity,
			AlertType: n.AlertType,
			Timestamp: &ts,
			Payload:   n.Payload,
		}, true
	case models.EventAlertResolved:
		return Message{
			Type:       TypeAlertResolved,
			AlertID:    n.AlertID,
			FeedID:     n.FeedID,
			Status:     n.Status,
			ResolvedBy: n.ResolvedBy,
			ResolvedAt: n.ResolvedAt,
		}, true
	default:
		return Message{}, false
	}
}

// StatusMessage builds a system:status frame. busConnected is omitted
// when nil.
func StatusMessage(sessions int, busConnected *bool, now time.Time) Message {
	return Message{
		Type:         TypeSystemStatus,
		Timestamp:    &now,
		Sessions:     &sessions,
		BusConnected: busConnected,
	}
}

func mustMarshal(msg Message) []byte {
	data, err := json.Marshal(msg)
	if err != nil {
		panic(fmt.Sprintf("encode %s frame: %v", msg.Type, err))
	}
	return data
}

// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package pubsub

import (
	"context"
	"errors"
	"time"
)

// ErrChannelUnavailable indicates the transport is down or the bus is closed.
var ErrChannelUnavailable = errors.New("pubsub: channel unavailable")

// Publisher sends payloads to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Subscriber binds subscriptions to a topic.
type Subscriber interface {
	// Subscribe returns once the subscription is bound. The channel is
	// closed when ctx is done, the bus is closed, or the transport fails.
	Subscribe(ctx context.Context, topic string) (<-chan []byte, error)
}

// Bus is a publish/subscribe transport.
type Bus interface {
	Publisher
	Subscriber
	Close() error
}

// ConnectionStatus is implemented by buses that can report transport
// health for readiness checks.
type ConnectionStatus interface {
	Connected() bool
}

// Connected reports whether b is usable. Buses that do not implement
// ConnectionStatus are assumed connected.
func Connected(b Bus) bool {
	if s, ok := b.(ConnectionStatus); ok {
		return s.Connected()
	}
	return true
}

// DefaultBufferSize is the per-subscription buffer when none is configured.
const DefaultBufferSize = 256

// NATSConfig configures the NATS based transports.
type NATSConfig struct {
	URL           string
	Name          string
	MaxReconnects int
	ReconnectWait time.Duration
	BufferSize    int
}

func (c NATSConfig) withDefaults() NATSConfig {
	if c.Name == "" {
		c.Name = "safex"
	}
	if c.ReconnectWait <= 0 {
		c.ReconnectWait = 2 * time.Second
	}
	if c.BufferSize <= 0 {
		c.BufferSize = DefaultBufferSize
	}
	return c
}

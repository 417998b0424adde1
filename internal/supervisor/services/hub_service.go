// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package services

import (
	"context"
)

// SessionHub matches (*websocket.Hub).Run.
type SessionHub interface {
	Run(ctx context.Context) error
}

// HubService runs the session hub's expiry sweep. Cancelling it closes
// every monitoring session with 1001.
type HubService struct {
	hub  SessionHub
	name string
}

// NewHubService wraps hub.
func NewHubService(hub SessionHub) *HubService {
	return &HubService{hub: hub, name: "websocket-hub"}
}

// Serve implements suture.Service.
func (s *HubService) Serve(ctx context.Context) error {
	return s.hub.Run(ctx)
}

// String implements fmt.Stringer.
func (s *HubService) String() string {
	return s.name
}

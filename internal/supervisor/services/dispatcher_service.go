// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package services

import (
	"context"
	"errors"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/safex/internal/websocket"
)

// AlertDispatcher matches *websocket.Dispatcher.
type AlertDispatcher interface {
	Start(ctx context.Context) error
	Stop()
	Done() <-chan struct{}
}

// DispatcherService keeps the alert dispatcher bound for the life of the
// process. The dispatcher is normally started before the tree so that a
// failed bind aborts startup; Serve then only watches it.
//
// Once the dispatcher has been stopped, Serve returns
// suture.ErrDoNotRestart.
type DispatcherService struct {
	dispatcher AlertDispatcher
	name       string
}

// NewDispatcherService wraps d.
func NewDispatcherService(d AlertDispatcher) *DispatcherService {
	return &DispatcherService{dispatcher: d, name: "alert-dispatcher"}
}

// Serve implements suture.Service.
func (s *DispatcherService) Serve(ctx context.Context) error {
	// The dispatcher outlives a single Serve call, so it is not bound to ctx.
	if err := s.dispatcher.Start(context.WithoutCancel(ctx)); err != nil {
		if errors.Is(err, websocket.ErrDispatcherStopped) {
			return suture.ErrDoNotRestart
		}
		return err
	}

	select {
	case <-ctx.Done():
		s.dispatcher.Stop()
		return ctx.Err()
	case <-s.dispatcher.Done():
		// Stopped from outside the tree.
		return suture.ErrDoNotRestart
	}
}

// String implements fmt.Stringer.
func (s *DispatcherService) String() string {
	return s.name
}

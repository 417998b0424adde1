// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package services

import (
	"context"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/safex/internal/logging"
)

// EmbeddedBroker matches *pubsub.EmbeddedServer.
type EmbeddedBroker interface {
	ClientURL() string
	IsRunning() bool
	Shutdown(ctx context.Context) error
}

// EmbeddedNATSService owns an in-process NATS server that was started
// before the tree and shuts it down on cancellation.
//
//	ns, _ := pubsub.NewEmbeddedServer(pubsub.EmbeddedServerConfig{Port: 4222})
//	svcs.Broker = services.NewEmbeddedNATSService(ns, 10*time.Second)
type EmbeddedNATSService struct {
	broker          EmbeddedBroker
	shutdownTimeout time.Duration
	checkInterval   time.Duration
}

// NewEmbeddedNATSService wraps broker.
func NewEmbeddedNATSService(broker EmbeddedBroker, shutdownTimeout time.Duration) *EmbeddedNATSService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &EmbeddedNATSService{
		broker:          broker,
		shutdownTimeout: shutdownTimeout,
		checkInterval:   5 * time.Second,
	}
}

// Serve implements suture.Service. A server that stops on its own cannot be
// restarted in place; Serve then returns suture.ErrDoNotRestart and the
// readiness probe reports the bus as down.
func (s *EmbeddedNATSService) Serve(ctx context.Context) error {
	log := logging.WithComponent("nats-embedded")
	log.Info().Str("url", s.broker.ClientURL()).Msg("embedded NATS server supervised")

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
			defer cancel()
			if err := s.broker.Shutdown(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("embedded NATS server shutdown incomplete")
			}
			return ctx.Err()
		case <-ticker.C:
			if !s.broker.IsRunning() {
				log.Error().Msg("embedded NATS server is no longer running")
				return suture.ErrDoNotRestart
			}
		}
	}
}

// String implements fmt.Stringer.
func (s *EmbeddedNATSService) String() string {
	return "nats-embedded"
}

// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package pubsub

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/safex/internal/logging"
	"github.com/tomtom215/safex/internal/metrics"
)

// BreakerConfig configures BreakerBus.
type BreakerConfig struct {
	Name string
	// FailureThreshold is the number of consecutive publish failures that
	// opens the breaker.
	FailureThreshold uint32
	// Timeout is how long the breaker stays open before a trial publish.
	Timeout time.Duration
}

// BreakerBus guards Publish with a circuit breaker. Subscribe and Close
// pass through.
type BreakerBus struct {
	Bus
	cb *gobreaker.CircuitBreaker[struct{}]
}

// NewBreakerBus wraps inner.
func NewBreakerBus(inner Bus, cfg BreakerConfig) *BreakerBus {
	if cfg.Name == "" {
		cfg.Name = "alert-publish"
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	log := logging.WithComponent("pubsub")
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("publish circuit breaker state changed")
		},
	}
	metrics.CircuitBreakerState.WithLabelValues(cfg.Name).Set(float64(gobreaker.StateClosed))

	return &BreakerBus{Bus: inner, cb: gobreaker.NewCircuitBreaker[struct{}](settings)}
}

// Publish fails fast with ErrChannelUnavailable while the breaker is open.
func (b *BreakerBus) Publish(ctx context.Context, topic string, payload []byte) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, b.Bus.Publish(ctx, topic, payload)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrChannelUnavailable, err)
	}
	return err
}

// State returns the breaker state.
func (b *BreakerBus) State() gobreaker.State {
	return b.cb.State()
}

// Connected is false while the breaker is open or the inner bus reports
// itself down.
func (b *BreakerBus) Connected() bool {
	return b.cb.State() != gobreaker.StateOpen && Connected(b.Bus)
}

// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package websocket

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/safex/internal/logging"
	"github.com/tomtom215/safex/internal/metrics"
	"github.com/tomtom215/safex/internal/models"
	"github.com/tomtom215/safex/internal/pubsub"
)

// Resubscribe backoff defaults.
const (
	DefaultReconnectInitial = 100 * time.Millisecond
	DefaultReconnectMax     = 30 * time.Second
)

// ErrDispatcherStopped is returned by Start after Stop.
var ErrDispatcherStopped = errors.New("alert dispatcher stopped")

// DispatcherConfig configures NewDispatcher.
type DispatcherConfig struct {
	// Topic defaults to models.TopicAlerts.
	Topic            string
	ReconnectInitial time.Duration
	ReconnectMax     time.Duration
}

// Dispatcher bridges the shared alert channel to the local Hub. There is
// one per process.
type Dispatcher struct {
	hub     *Hub
	sub     pubsub.Subscriber
	topic   string
	initial time.Duration
	max     time.Duration
	log     zerolog.Logger

	mu      sync.Mutex
	running bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewDispatcher creates a dispatcher that broadcasts notifications from sub
// into hub.
func NewDispatcher(hub *Hub, sub pubsub.Subscriber, cfg DispatcherConfig) *Dispatcher {
	if cfg.Topic == "" {
		cfg.Topic = models.TopicAlerts
	}
	if cfg.ReconnectInitial <= 0 {
		cfg.ReconnectInitial = DefaultReconnectInitial
	}
	if cfg.ReconnectMax < cfg.ReconnectInitial {
		cfg.ReconnectMax = DefaultReconnectMax
	}
	return &Dispatcher{
		hub:     hub,
		sub:     sub,
		topic:   cfg.Topic,
		initial: cfg.ReconnectInitial,
		max:     cfg.ReconnectMax,
		log:     logging.WithComponent("dispatcher"),
	}
}

// Start binds the subscription and begins dispatching. A bind failure is
// returned to the caller; at process startup it is fatal.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return ErrDispatcherStopped
	}
	if d.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	msgs, err := d.sub.Subscribe(runCtx, d.topic)
	if err != nil {
		cancel()
		return fmt.Errorf("bind %s subscription: %w", d.topic, err)
	}

	d.running = true
	d.cancel = cancel
	d.done = make(chan struct{})
	go d.run(runCtx, msgs, d.done)

	d.log.Info().Str("topic", d.topic).Msg("alert dispatcher started")
	return nil
}

// Stop cancels the subscription and waits for the dispatch loop to exit.
// A stopped dispatcher cannot be started again.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	d.stopped = true
	if !d.running {
		d.mu.Unlock()
		return
	}
	cancel, done := d.cancel, d.done
	d.mu.Unlock()

	cancel()
	<-done
	d.log.Info().Msg("alert dispatcher stopped")
}

// Running reports whether the dispatch loop is active.
func (d *Dispatcher) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// Stopped reports whether Stop has been called.
func (d *Dispatcher) Stopped() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopped
}

// Done is closed when the current dispatch loop exits. It is nil before
// the first Start.
func (d *Dispatcher) Done() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.done
}

func (d *Dispatcher) run(ctx context.Context, msgs <-chan []byte, done chan struct{}) {
	defer func() {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
		close(done)
	}()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.initial
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = d.max
	b.MaxElapsedTime = 0

	for {
		d.consume(ctx, msgs)
		if ctx.Err() != nil {
			return
		}
		d.log.Warn().Str("topic", d.topic).Msg("alert subscription closed, resubscribing")
		if msgs = d.resubscribe(ctx, b); msgs == nil {
			return
		}
	}
}

func (d *Dispatcher) consume(ctx context.Context, msgs <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-msgs:
			if !ok {
				return
			}
			d.handle(data)
		}
	}
}

// resubscribe retries Subscribe with exponential backoff until it succeeds
// or ctx is done, in which case it returns nil. The delay starts over on
// every call.
func (d *Dispatcher) resubscribe(ctx context.Context, b *backoff.ExponentialBackOff) <-chan []byte {
	b.Reset()
	for attempt := 1; ; attempt++ {
		wait := b.NextBackOff()
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		msgs, err := d.sub.Subscribe(ctx, d.topic)
		if err == nil {
			metrics.DispatcherResubscribes.Inc()
			d.log.Info().Int("attempt", attempt).Msg("alert subscription restored")
			return msgs
		}
		if ctx.Err() != nil {
			return nil
		}
		d.log.Warn().Err(err).Int("attempt", attempt).Dur("waited", wait).Msg("resubscribe failed")
	}
}

func (d *Dispatcher) handle(data []byte) {
	var n models.AlertNotification
	if err := json.Unmarshal(data, &n); err != nil {
		d.log.Warn().Err(err).Msg("discarding undecodable alert notification")
		return
	}
	msg, ok := NotificationMessage(n)
	if !ok {
		d.log.Debug().Str("event", n.Event).Msg("ignoring unknown notification event")
		return
	}
	frame, err := MarshalMessage(msg)
	if err != nil {
		d.log.Warn().Err(err).Str("alert_id", n.AlertID).Msg("failed to encode alert frame")
		return
	}

	delivered := d.hub.Broadcast(MatchFeed(n.FeedID), frame)
	d.log.Debug().
		Str("event", n.Event).
		Str("alert_id", n.AlertID).
		Str("feed_id", n.FeedID).
		Int("delivered", delivered).
		Msg("alert notification dispatched")
}

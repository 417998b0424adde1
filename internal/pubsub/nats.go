// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package pubsub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/tomtom215/safex/internal/logging"
)

// bindTimeout bounds the round trip that confirms a subscription with the server.
const bindTimeout = 5 * time.Second

// NATSBus is a Bus over a core NATS connection.
type NATSBus struct {
	nc     *nats.Conn
	buffer int
	log    zerolog.Logger

	done      chan struct{}
	closeOnce sync.Once
}

// natsOptions returns the connection options shared by the NATS transports.
func natsOptions(cfg NATSConfig, log zerolog.Logger) []nats.Option {
	return []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			ev := log.Error().Err(err)
			if sub != nil {
				ev = ev.Str("subject", sub.Subject)
			}
			ev.Msg("NATS error")
		}),
	}
}

// NewNATSBus connects to cfg.URL.
func NewNATSBus(cfg NATSConfig) (*NATSBus, error) {
	cfg = cfg.withDefaults()
	b := &NATSBus{
		buffer: cfg.BufferSize,
		log:    logging.WithComponent("pubsub").With().Str("transport", "nats").Logger(),
		done:   make(chan struct{}),
	}

	opts := append(natsOptions(cfg, b.log), nats.ClosedHandler(func(*nats.Conn) {
		b.log.Warn().Msg("NATS connection closed")
		b.markClosed()
	}))

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: connect %s: %w", ErrChannelUnavailable, cfg.URL, err)
	}
	b.nc = nc
	b.log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS bus connected")
	return b, nil
}

func (b *NATSBus) markClosed() {
	b.closeOnce.Do(func() { close(b.done) })
}

// Publish sends payload to topic. While the client is reconnecting the
// payload is buffered by nats.go.
func (b *NATSBus) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.nc.IsClosed() {
		return fmt.Errorf("%w: connection closed", ErrChannelUnavailable)
	}
	if err := b.nc.Publish(topic, payload); err != nil {
		return fmt.Errorf("%w: publish %s: %w", ErrChannelUnavailable, topic, err)
	}
	return nil
}

// Subscribe binds a subscription to topic and confirms it with the server.
func (b *NATSBus) Subscribe(ctx context.Context, topic string) (<-chan []byte, error) {
	if b.nc.IsClosed() {
		return nil, fmt.Errorf("%w: connection closed", ErrChannelUnavailable)
	}

	msgs := make(chan *nats.Msg, b.buffer)
	sub, err := b.nc.ChanSubscribe(topic, msgs)
	if err != nil {
		return nil, fmt.Errorf("%w: subscribe %s: %w", ErrChannelUnavailable, topic, err)
	}
	if err := b.nc.FlushTimeout(bindTimeout); err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("%w: bind %s: %w", ErrChannelUnavailable, topic, err)
	}

	out := make(chan []byte)
	go func() {
		defer close(out)
		defer func() { _ = sub.Unsubscribe() }()
		for {
			select {
			case <-ctx.Done():
				return
			case <-b.done:
				return
			case m := <-msgs:
				select {
				case out <- m.Data:
				case <-ctx.Done():
					return
				case <-b.done:
					return
				}
			}
		}
	}()
	return out, nil
}

// Connected reports whether the connection is currently up.
func (b *NATSBus) Connected() bool {
	return b.nc.IsConnected()
}

// Close closes every subscription channel and then the connection.
func (b *NATSBus) Close() error {
	b.markClosed()
	b.nc.Close()
	return nil
}

// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package pubsub

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"

	"github.com/tomtom215/safex/internal/logging"
)

// WatermillBus adapts a Watermill publisher and subscriber to Bus.
type WatermillBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	log        zerolog.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func newWatermillBus(pub message.Publisher, sub message.Subscriber, transport string) *WatermillBus {
	return &WatermillBus{
		publisher:  pub,
		subscriber: sub,
		log:        logging.WithComponent("pubsub").With().Str("transport", transport).Logger(),
		done:       make(chan struct{}),
	}
}

func watermillLogger() watermill.LoggerAdapter {
	return watermill.NewSlogLogger(logging.NewSlogLogger())
}

// NewGoChannelBus creates an in-process bus. It delivers only within the
// current process and is meant for single-node runs and tests.
func NewGoChannelBus(bufferSize int64) *WatermillBus {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	gc := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: bufferSize}, watermillLogger())
	return newWatermillBus(gc, gc, "gochannel")
}

// NewWatermillNATSBus creates a bus over core NATS through watermill-nats.
// JetStream is disabled and no queue group is used, so every process
// receives every message.
func NewWatermillNATSBus(cfg NATSConfig) (*WatermillBus, error) {
	cfg = cfg.withDefaults()
	logger := watermillLogger()
	zl := logging.WithComponent("pubsub").With().Str("transport", "watermill-nats").Logger()
	natsOpts := natsOptions(cfg, zl)

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: create watermill publisher: %w", ErrChannelUnavailable, err)
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              cfg.URL,
		SubscribersCount: 1,
		CloseTimeout:     5 * time.Second,
		AckWaitTimeout:   30 * time.Second,
		SubscribeTimeout: bindTimeout,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream:        wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		_ = pub.Close()
		return nil, fmt.Errorf("%w: create watermill subscriber: %w", ErrChannelUnavailable, err)
	}

	return newWatermillBus(pub, sub, "watermill-nats"), nil
}

// Publish wraps payload in a Watermill message and publishes it.
func (b *WatermillBus) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("%w: bus closed", ErrChannelUnavailable)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	if err := b.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("%w: publish %s: %w", ErrChannelUnavailable, topic, err)
	}
	return nil
}

// Subscribe forwards message payloads from topic, acking each one once it
// has been handed to the caller.
func (b *WatermillBus) Subscribe(ctx context.Context, topic string) (<-chan []byte, error) {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return nil, fmt.Errorf("%w: bus closed", ErrChannelUnavailable)
	}

	msgs, err := b.subscriber.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("%w: subscribe %s: %w", ErrChannelUnavailable, topic, err)
	}

	out := make(chan []byte)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case <-b.done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
					msg.Ack()
				case <-ctx.Done():
					msg.Nack()
					return
				case <-b.done:
					msg.Nack()
					return
				}
			}
		}
	}()
	return out, nil
}

// Connected reports whether the bus has not been closed.
func (b *WatermillBus) Connected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return !b.closed
}

// Close closes the subscriber and then the publisher. A GoChannel bus uses
// one value for both and is closed once.
func (b *WatermillBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.done)
	b.mu.Unlock()

	err := b.subscriber.Close()
	if pub, ok := b.publisher.(message.Subscriber); !ok || pub != b.subscriber {
		err = errors.Join(err, b.publisher.Close())
	}
	if err != nil {
		b.log.Warn().Err(err).Msg("closing watermill bus")
	}
	return err
}

// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package pubsub

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGoChannelBus_FanOut(t *testing.T) {
	t.Parallel()
	bus := NewGoChannelBus(16)
	t.Cleanup(func() { _ = bus.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, err := bus.Subscribe(ctx, "safex.alerts")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	second, err := bus.Subscribe(ctx, "safex.alerts")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	other, err := bus.Subscribe(ctx, "other")
	if err != nil {
		t.Fatal(err)
	}

	if err := bus.Publish(ctx, "safex.alerts", []byte("A1")); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	for _, ch := range []<-chan []byte{first, second} {
		if got := receive(t, ch, 2*time.Second); string(got) != "A1" {
			t.Errorf("payload = %q, want A1", got)
		}
	}
	select {
	case msg := <-other:
		t.Errorf("other topic received %q", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestGoChannelBus_SubscriptionEndsWithContext(t *testing.T) {
	t.Parallel()
	bus := NewGoChannelBus(0)
	t.Cleanup(func() { _ = bus.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := bus.Subscribe(ctx, "t")
	if err != nil {
		t.Fatal(err)
	}
	cancel()
	waitClosed(t, ch, 2*time.Second)
}

func TestGoChannelBus_Close(t *testing.T) {
	t.Parallel()
	bus := NewGoChannelBus(4)

	ch, err := bus.Subscribe(context.Background(), "t")
	if err != nil {
		t.Fatal(err)
	}
	if !bus.Connected() {
		t.Error("open bus should report connected")
	}

	if err := bus.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	waitClosed(t, ch, 2*time.Second)

	if bus.Connected() {
		t.Error("closed bus should report disconnected")
	}
	if err := bus.Publish(context.Background(), "t", nil); !errors.Is(err, ErrChannelUnavailable) {
		t.Errorf("Publish() after Close error = %v, want ErrChannelUnavailable", err)
	}
	if _, err := bus.Subscribe(context.Background(), "t"); !errors.Is(err, ErrChannelUnavailable) {
		t.Errorf("Subscribe() after Close error = %v, want ErrChannelUnavailable", err)
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	bus, err := Open(DriverMemory, NATSConfig{})
	if err != nil {
		t.Fatalf("Open(memory) error = %v", err)
	}
	_ = bus.Close()

	if _, err := Open("kafka", NATSConfig{}); err == nil {
		t.Error("Open(kafka) should fail")
	}
}

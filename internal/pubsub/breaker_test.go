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

	"github.com/prometheus/client_golang/prometheus/testutil"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/safex/internal/metrics"
)

func TestBreakerBus_OpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	inner := &fakeBus{err: errors.New("nats: connection closed")}
	bus := NewBreakerBus(inner, BreakerConfig{Name: "test-opens", FailureThreshold: 3, Timeout: time.Hour})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := bus.Publish(ctx, "t", []byte("x")); err == nil {
			t.Fatal("Publish() should fail while inner fails")
		}
	}
	if bus.State() != gobreaker.StateOpen {
		t.Fatalf("state = %v, want open", bus.State())
	}
	if bus.Connected() {
		t.Error("open breaker should report disconnected")
	}

	err := bus.Publish(ctx, "t", []byte("x"))
	if !errors.Is(err, ErrChannelUnavailable) || !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("Publish() while open error = %v", err)
	}
	if inner.callCount() != 3 {
		t.Errorf("inner calls = %d, want 3 (open breaker must not call through)", inner.callCount())
	}
	if got := testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues("test-opens")); got != 2 {
		t.Errorf("breaker gauge = %v, want 2", got)
	}
}

func TestBreakerBus_HalfOpenRecovers(t *testing.T) {
	t.Parallel()

	inner := &fakeBus{err: errors.New("down")}
	bus := NewBreakerBus(inner, BreakerConfig{Name: "test-recovers", FailureThreshold: 1, Timeout: 20 * time.Millisecond})
	ctx := context.Background()

	_ = bus.Publish(ctx, "t", nil)
	if bus.State() != gobreaker.StateOpen {
		t.Fatalf("state = %v, want open", bus.State())
	}

	inner.setErr(nil)
	time.Sleep(40 * time.Millisecond)
	if err := bus.Publish(ctx, "t", []byte("ok")); err != nil {
		t.Fatalf("trial Publish() error = %v", err)
	}
	if bus.State() != gobreaker.StateClosed {
		t.Errorf("state = %v, want closed", bus.State())
	}
}

func TestBreakerBus_ContextErrorsDoNotTrip(t *testing.T) {
	t.Parallel()

	inner := &fakeBus{err: context.Canceled}
	bus := NewBreakerBus(inner, BreakerConfig{Name: "test-ctx", FailureThreshold: 1, Timeout: time.Hour})
	for i := 0; i < 5; i++ {
		_ = bus.Publish(context.Background(), "t", nil)
	}
	if bus.State() != gobreaker.StateClosed {
		t.Errorf("state = %v, want closed", bus.State())
	}
}

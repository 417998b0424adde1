// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package store

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/safex/internal/logging"
)

func init() {
	logging.Init(logging.Config{Level: "info", Format: "console", Output: io.Discard})
}

func TestRetryOnce(t *testing.T) {
	t.Parallel()

	errTimeout := errors.New("i/o timeout")
	errBoom := errors.New("boom")

	tests := []struct {
		name      string
		results   []error
		wantCalls int32
		wantIs    error
		wantNil   bool
	}{
		{"success first try", []error{nil}, 1, nil, true},
		{"transient then success", []error{Transient(errTimeout), nil}, 2, nil, true},
		{"transient twice becomes persistence failure", []error{Transient(errTimeout), Transient(errTimeout)}, 2, ErrPersistenceFailure, false},
		{"non-transient not retried", []error{errBoom}, 1, errBoom, false},
		{"domain error not retried", []error{ErrNotFound}, 1, ErrNotFound, false},
		{"transient then domain error", []error{Transient(errTimeout), ErrConflict}, 2, ErrConflict, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32
			err := RetryOnce(context.Background(), time.Millisecond, func() error {
				n := calls.Add(1)
				return tt.results[n-1]
			})

			if got := calls.Load(); got != tt.wantCalls {
				t.Errorf("calls = %d, want %d", got, tt.wantCalls)
			}
			if tt.wantNil {
				if err != nil {
					t.Fatalf("RetryOnce() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantIs) {
				t.Fatalf("RetryOnce() error = %v, want %v", err, tt.wantIs)
			}
		})
	}
}

func TestRetryOnce_ContextCanceledDuringBackoff(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	err := RetryOnce(ctx, time.Hour, func() error {
		calls.Add(1)
		return Transient(errors.New("timeout"))
	})

	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
	if !errors.Is(err, ErrPersistenceFailure) {
		t.Errorf("error = %v, want ErrPersistenceFailure", err)
	}
}

func TestIsDomainError(t *testing.T) {
	t.Parallel()

	for _, err := range []error{ErrNotFound, ErrConflict, ErrTokenRevoked, ErrAlreadyResolved} {
		if !IsDomainError(err) {
			t.Errorf("IsDomainError(%v) = false", err)
		}
	}
	if IsDomainError(Unavailable(errors.New("down"))) {
		t.Error("persistence failure is not a domain error")
	}
}

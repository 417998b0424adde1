// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package auth

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/safex/internal/logging"
	"github.com/tomtom215/safex/internal/store"
	"github.com/tomtom215/safex/internal/store/badgerstore"
)

func init() {
	logging.Init(logging.Config{Level: "info", Format: "console", Output: io.Discard})
}

const testSecret = "this_is_a_very_long_secret_key_for_testing_purposes_12345"

// fakeClock is a manually advanced clock shared by the token manager and
// the service.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	svc   *Service
	store store.Store
	clock *fakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st, err := badgerstore.Open(badgerstore.Options{InMemory: true})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return newTestEnvWithStore(t, st)
}

func newTestEnvWithStore(t *testing.T, st store.Store) *testEnv {
	t.Helper()
	clock := newFakeClock()
	tm, err := NewTokenManager(TokenManagerConfig{
		Secret: testSecret,
		Issuer: "safex-test",
		TTL:    time.Hour,
		Leeway: 5 * time.Second,
		Now:    clock.Now,
	})
	if err != nil {
		t.Fatalf("NewTokenManager() error = %v", err)
	}
	svc, err := NewService(st, tm, ServiceConfig{
		RefreshTTL:   30 * 24 * time.Hour,
		BcryptCost:   4,
		RetryBackoff: time.Millisecond,
		Now:          clock.Now,
	})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return &testEnv{svc: svc, store: st, clock: clock}
}

// flakyStore fails the first failures calls to Update with a transient
// error and delegates afterwards.
type flakyStore struct {
	store.Store
	failures atomic.Int32
	calls    atomic.Int32
	err      error
}

func (f *flakyStore) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	f.calls.Add(1)
	if f.failures.Add(-1) >= 0 {
		return f.err
	}
	return f.Store.Update(ctx, fn)
}

// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package alerts

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/safex/internal/auth"
	"github.com/tomtom215/safex/internal/logging"
	"github.com/tomtom215/safex/internal/models"
	"github.com/tomtom215/safex/internal/store"
	"github.com/tomtom215/safex/internal/store/badgerstore"
)

func init() {
	logging.Init(logging.Config{Level: "info", Format: "console", Output: io.Discard})
}

const testAgentKey = "agent-key-0123456789"

var agentCreds = auth.AgentCredentials{APIKey: testAgentKey}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
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

// recordingPublisher captures published notifications. When err is set,
// every publish fails with it. onPublish, if set, runs before recording.
type recordingPublisher struct {
	mu        sync.Mutex
	messages  []models.AlertNotification
	topics    []string
	err       error
	onPublish func()
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, payload []byte) error {
	if p.onPublish != nil {
		p.onPublish()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	var n models.AlertNotification
	if err := json.Unmarshal(payload, &n); err != nil {
		return err
	}
	p.messages = append(p.messages, n)
	p.topics = append(p.topics, topic)
	return nil
}

func (p *recordingPublisher) published() []models.AlertNotification {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.AlertNotification(nil), p.messages...)
}

// failingStore fails every Update with err.
type failingStore struct {
	store.Store
	err error
}

func (f failingStore) Update(context.Context, func(tx store.Tx) error) error {
	return f.err
}

type testEnv struct {
	svc   *Service
	pub   *recordingPublisher
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
	clock := &fakeClock{now: time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)}
	pub := &recordingPublisher{}
	svc, err := NewService(st, pub, auth.NewAgentAuthenticator([]string{testAgentKey}, nil), ServiceConfig{
		RetryBackoff: time.Millisecond,
		Now:          clock.Now,
	})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return &testEnv{svc: svc, pub: pub, store: st, clock: clock}
}

func (env *testEnv) create(t *testing.T, feedID string) *models.Alert {
	t.Helper()
	a, err := env.svc.CreateAlert(context.Background(), agentCreds, CreateAlertInput{
		FeedID:   feedID,
		Severity: models.SeverityHigh,
	})
	if err != nil {
		t.Fatalf("CreateAlert(%s) error = %v", feedID, err)
	}
	env.clock.Advance(time.Second)
	return a
}

var errOutage = errors.New("channel down")

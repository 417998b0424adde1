// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package websocket

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/safex/internal/auth"
	"github.com/tomtom215/safex/internal/logging"
	"github.com/tomtom215/safex/internal/models"
)

func init() {
	logging.Init(logging.Config{Level: "info", Format: "console", Output: io.Discard})
}

var userSeq atomic.Int64

func testPrincipal(ttl time.Duration) *auth.Principal {
	return &auth.Principal{
		Kind:      auth.PrincipalUser,
		ID:        fmt.Sprintf("user-%d", userSeq.Add(1)),
		Role:      models.RoleViewer,
		ExpiresAt: time.Now().Add(ttl),
	}
}

// newTestSession returns a registered-ready session without a connection.
// Only the hub-side API (enqueue, Close, Subscribe) may be used on it.
func newTestSession(t *testing.T, buffer int, topic string) *Session {
	t.Helper()
	s, err := newSession(testPrincipal(time.Hour), SessionConfig{SendBuffer: buffer})
	if err != nil {
		t.Fatalf("newSession() error = %v", err)
	}
	if topic != "" {
		if err := s.Subscribe(topic); err != nil {
			t.Fatalf("Subscribe(%q) error = %v", topic, err)
		}
	}
	return s
}

// drain returns the frames currently queued on s.
func drain(s *Session) [][]byte {
	var out [][]byte
	for {
		select {
		case f := <-s.send:
			out = append(out, f)
		default:
			return out
		}
	}
}

// testServer upgrades every request into a session registered on hub.
type testServer struct {
	*httptest.Server
	hub      *Hub
	sessions chan *Session
}

func newTestServer(t *testing.T, hub *Hub, cfg SessionConfig, ttl time.Duration) *testServer {
	t.Helper()
	ts := &testServer{hub: hub, sessions: make(chan *Session, 16)}
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s, err := NewSession(conn, testPrincipal(ttl), cfg)
		if err != nil {
			_ = conn.Close()
			return
		}
		if err := hub.Register(s); err != nil {
			_ = conn.Close()
			return
		}
		s.Start(hub)
		ts.sessions <- s
	}))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *testServer) dial(t *testing.T) (*websocket.Conn, *Session) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	select {
	case s := <-ts.sessions:
		return conn, s
	case <-time.After(2 * time.Second):
		t.Fatal("session was not registered")
		return nil, nil
	}
}

// readUntil reads frames until one has the wanted type, skipping
// heartbeats and other types.
func readUntil(t *testing.T, conn *websocket.Conn, wantType string) Message {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	_ = conn.SetReadDeadline(deadline)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %q: %v", wantType, err)
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("decode frame %s: %v", data, err)
		}
		if msg.Type == wantType {
			return msg
		}
	}
}

func writeJSON(t *testing.T, conn *websocket.Conn, v interface{}) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

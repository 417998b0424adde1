// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package websocket

import (
	"errors"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// expectClose reads until the server's close frame arrives.
func expectClose(t *testing.T, conn *websocket.Conn, wantCode int, wantText string) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		var ce *websocket.CloseError
		if !errors.As(err, &ce) {
			t.Fatalf("read error = %v, want close frame %d", err, wantCode)
		}
		if ce.Code != wantCode || ce.Text != wantText {
			t.Fatalf("close = %d %q, want %d %q", ce.Code, ce.Text, wantCode, wantText)
		}
		return
	}
}

func TestSession_Protocol(t *testing.T) {
	t.Parallel()

	hub := NewHub(HubConfig{})
	ts := newTestServer(t, hub, SessionConfig{}, time.Hour)
	conn, s := ts.dial(t)

	established := readUntil(t, conn, TypeConnectionEstablished)
	if established.ConnectionID != s.ID() || established.UserID != s.UserID() {
		t.Errorf("established = %+v, want connection %s user %s", established, s.ID(), s.UserID())
	}
	if s.State() != StateAuthenticated {
		t.Errorf("state = %s, want authenticated", s.State())
	}

	writeJSON(t, conn, ClientMessage{Type: TypeSubscribe, Topic: "cam-1"})
	confirmed := readUntil(t, conn, TypeSubscriptionConfirmed)
	if confirmed.Topic != "cam-1" {
		t.Errorf("confirmed topic = %q", confirmed.Topic)
	}
	waitFor(t, "active state", func() bool { return s.State() == StateActive })

	writeJSON(t, conn, ClientMessage{Type: TypePing})
	readUntil(t, conn, TypePong)

	writeJSON(t, conn, ClientMessage{Type: "dance"})
	if msg := readUntil(t, conn, TypeError); msg.Detail != "unknown message type: dance" {
		t.Errorf("error detail = %q", msg.Detail)
	}

	writeJSON(t, conn, ClientMessage{Type: TypeSubscribe})
	if msg := readUntil(t, conn, TypeError); msg.Detail != "topic is required" {
		t.Errorf("error detail = %q", msg.Detail)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	if msg := readUntil(t, conn, TypeError); msg.Detail != "invalid JSON message" {
		t.Errorf("error detail = %q", msg.Detail)
	}

	if n := hub.Broadcast(MatchFeed("cam-1"), mustMarshal(Message{Type: TypeAlert, AlertID: "a1", FeedID: "cam-1"})); n != 1 {
		t.Fatalf("Broadcast() = %d, want 1", n)
	}
	if alert := readUntil(t, conn, TypeAlert); alert.AlertID != "a1" {
		t.Errorf("alert id = %q", alert.AlertID)
	}
	if n := hub.Broadcast(MatchFeed("cam-2"), []byte("{}")); n != 0 {
		t.Errorf("Broadcast() to other feed = %d, want 0", n)
	}
}

func TestSession_Heartbeat(t *testing.T) {
	t.Parallel()

	hub := NewHub(HubConfig{})
	ts := newTestServer(t, hub, SessionConfig{HeartbeatInterval: 30 * time.Millisecond}, time.Hour)
	conn, _ := ts.dial(t)

	hb := readUntil(t, conn, TypeHeartbeat)
	if hb.Timestamp == nil || hb.Timestamp.IsZero() {
		t.Error("heartbeat has no timestamp")
	}
}

func TestSession_IdleTimeout(t *testing.T) {
	t.Parallel()

	cfg := SessionConfig{IdleTimeout: 80 * time.Millisecond, ProbeTimeout: 80 * time.Millisecond}

	t.Run("silent client is closed", func(t *testing.T) {
		t.Parallel()

		hub := NewHub(HubConfig{})
		ts := newTestServer(t, hub, cfg, time.Hour)
		conn, s := ts.dial(t)

		// Ignore probes so pongs are never sent.
		conn.SetPingHandler(func(string) error { return nil })
		expectClose(t, conn, websocket.CloseGoingAway, "idle timeout")

		select {
		case <-s.Finished():
		case <-time.After(3 * time.Second):
			t.Fatal("idle session did not finish")
		}
		if _, _, label := s.closeInfo(); label != ReasonIdleTimeout {
			t.Errorf("close reason = %q, want %q", label, ReasonIdleTimeout)
		}
		if s.State() != StateClosed {
			t.Errorf("state = %s, want closed", s.State())
		}
		waitFor(t, "unregister", func() bool { return hub.Count() == 0 })
	})

	t.Run("responsive client stays open", func(t *testing.T) {
		t.Parallel()

		hub := NewHub(HubConfig{})
		ts := newTestServer(t, hub, cfg, time.Hour)
		conn, s := ts.dial(t)

		// The default ping handler answers probes while reading.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		time.Sleep(500 * time.Millisecond)
		select {
		case <-s.Done():
			_, _, label := s.closeInfo()
			t.Fatalf("responsive session closed: %s", label)
		default:
		}
		if hub.Count() != 1 {
			t.Errorf("Count() = %d, want 1", hub.Count())
		}
	})
}

func TestSession_TokenExpiry(t *testing.T) {
	t.Parallel()

	hub := NewHub(HubConfig{ExpiryCheckInterval: 20 * time.Millisecond})
	ctx := t.Context()
	go func() { _ = hub.Run(ctx) }()

	ts := newTestServer(t, hub, SessionConfig{}, 200*time.Millisecond)
	conn, s := ts.dial(t)

	expectClose(t, conn, websocket.ClosePolicyViolation, "token expired")
	select {
	case <-s.Finished():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not finish")
	}
	if hub.Count() != 0 {
		t.Errorf("Count() = %d, want 0", hub.Count())
	}
}

func TestSession_RateLimit(t *testing.T) {
	t.Parallel()

	hub := NewHub(HubConfig{})
	ts := newTestServer(t, hub, SessionConfig{MessageRate: 1, MessageBurst: 2}, time.Hour)
	conn, s := ts.dial(t)

	// Burst of two, then one over the limit.
	for i := 0; i < 3; i++ {
		writeJSON(t, conn, ClientMessage{Type: TypePing})
	}
	expectClose(t, conn, websocket.ClosePolicyViolation, "rate limit exceeded")
	if _, _, label := s.closeInfo(); label != ReasonRateLimited {
		t.Errorf("close reason = %q", label)
	}
}

func TestSession_ClientClose(t *testing.T) {
	t.Parallel()

	hub := NewHub(HubConfig{})
	ts := newTestServer(t, hub, SessionConfig{}, time.Hour)
	conn, s := ts.dial(t)
	readUntil(t, conn, TypeConnectionEstablished)

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
	if err := conn.WriteMessage(websocket.CloseMessage, msg); err != nil {
		t.Fatal(err)
	}

	select {
	case <-s.Finished():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not finish after client close")
	}
	if _, _, label := s.closeInfo(); label != ReasonClient {
		t.Errorf("close reason = %q, want %q", label, ReasonClient)
	}
	waitFor(t, "unregister", func() bool { return hub.Count() == 0 })
}

// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package websocket

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tomtom215/safex/internal/auth"
	"github.com/tomtom215/safex/internal/logging"
	"github.com/tomtom215/safex/internal/metrics"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// DefaultExpiryCheckInterval is how often Run re-checks token expiry.
const DefaultExpiryCheckInterval = 60 * time.Second

// DefaultStatusInterval is how often Run broadcasts system:status.
const DefaultStatusInterval = 60 * time.Second

// Predicate selects the sessions a broadcast is delivered to.
type Predicate func(*Session) bool

// MatchFeed selects subscribed sessions whose topic is TopicAll or feedID.
func MatchFeed(feedID string) Predicate {
	return func(s *Session) bool {
		topic := s.Topic()
		return topic == TopicAll || (topic != "" && topic == feedID)
	}
}

// HubConfig configures NewHub.
type HubConfig struct {
	ExpiryCheckInterval time.Duration
	StatusInterval      time.Duration

	// BusConnected reports the shared channel state in system:status
	// frames. Nil omits the field.
	BusConnected func() bool

	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
}

// Hub is the per-process registry of monitoring sessions.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	expiryInterval time.Duration
	statusInterval time.Duration
	busConnected   func() bool
	now            func() time.Time
	log            zerolog.Logger
}

// NewHub creates an empty registry.
func NewHub(cfg HubConfig) *Hub {
	if cfg.ExpiryCheckInterval <= 0 {
		cfg.ExpiryCheckInterval = DefaultExpiryCheckInterval
	}
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = DefaultStatusInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Hub{
		sessions:       make(map[string]*Session),
		expiryInterval: cfg.ExpiryCheckInterval,
		statusInterval: cfg.StatusInterval,
		busConnected:   cfg.BusConnected,
		now:            cfg.Now,
		log:            logging.WithComponent("websocket-hub"),
	}
}

// Register adds an authenticated, unexpired session.
func (h *Hub) Register(s *Session) error {
	if s == nil {
		return ErrNotAuthenticated
	}
	if st := s.State(); st != StateAuthenticated {
		return fmt.Errorf("%w: session is %s", ErrNotAuthenticated, st)
	}
	if s.Expired(h.now()) {
		return auth.ErrAuthExpired
	}

	h.mu.Lock()
	h.sessions[s.id] = s
	total := len(h.sessions)
	h.mu.Unlock()

	metrics.WSConnections.Inc()
	h.log.Info().Str("connection_id", s.id).Str("user_id", s.userID).Int("total_sessions", total).Msg("monitoring session registered")
	return nil
}

// Unregister removes the session with id and closes it if still open. It
// reports whether the session was registered.
func (h *Hub) Unregister(id string) bool {
	h.mu.Lock()
	s, ok := h.sessions[id]
	if ok {
		delete(h.sessions, id)
	}
	total := len(h.sessions)
	h.mu.Unlock()
	if !ok {
		return false
	}

	s.Close(websocket.CloseGoingAway, "", ReasonUnregistered)
	_, _, label := s.closeInfo()
	metrics.RecordSessionClosed(label)
	h.log.Info().Str("connection_id", id).Str("reason", label).Int("total_sessions", total).Msg("monitoring session unregistered")
	return true
}

// Broadcast queues frame on every session matched by match and returns how
// many accepted it. Sessions are selected under the read lock and sent to
// outside it. A session whose queue is full is closed and unregistered;
// Broadcast never waits on a session.
func (h *Hub) Broadcast(match Predicate, frame []byte) int {
	h.mu.RLock()
	targets := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		if match == nil || match(s) {
			targets = append(targets, s)
		}
	}
	h.mu.RUnlock()

	delivered := 0
	for _, s := range targets {
		if s.enqueue(frame) {
			delivered++
			continue
		}
		metrics.FanoutDrops.Inc()
		h.log.Warn().Str("connection_id", s.id).Msg("dropping slow monitoring session")
		s.Close(websocket.CloseTryAgainLater, "send buffer full", ReasonSlowConsumer)
		h.Unregister(s.id)
	}
	metrics.FanoutDeliveries.Add(float64(delivered))
	return delivered
}

// Count returns the number of registered sessions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Sessions returns a snapshot ordered by connection id.
func (h *Hub) Sessions() []*Session {
	h.mu.RLock()
	out := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		out = append(out, s)
	}
	h.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// BroadcastStatus sends a system:status frame with the session count and
// bus state to every registered session and returns how many accepted it.
func (h *Hub) BroadcastStatus() int {
	var connected *bool
	if h.busConnected != nil {
		c := h.busConnected()
		connected = &c
	}
	frame := mustMarshal(StatusMessage(h.Count(), connected, h.now().UTC()))
	return h.Broadcast(nil, frame)
}

// Run closes sessions whose access token has expired every expiry interval
// and broadcasts system:status every status interval. When ctx is
// cancelled it closes all sessions and returns ctx.Err().
func (h *Hub) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.expiryInterval)
	defer ticker.Stop()
	status := time.NewTicker(h.statusInterval)
	defer status.Stop()

	for {
		select {
		case <-ctx.Done():
			closed := h.closeAll(websocket.CloseGoingAway, "server shutting down", ReasonShutdown)
			h.log.Info().
				Str("reason", string(getShutdownReason(ctx))).
				Int("sessions_closed", closed).
				Msg("websocket hub stopped")
			return ctx.Err()
		case <-ticker.C:
			if n := h.SweepExpired(); n > 0 {
				h.log.Info().Int("sessions_closed", n).Msg("closed sessions with expired tokens")
			}
		case <-status.C:
			h.BroadcastStatus()
		}
	}
}

// SweepExpired closes every session whose token has expired with code
// 1008 and returns how many were closed.
func (h *Hub) SweepExpired() int {
	now := h.now()
	closed := 0
	for _, s := range h.Sessions() {
		if !s.Expired(now) {
			continue
		}
		s.Close(websocket.ClosePolicyViolation, "token expired", ReasonTokenExpired)
		h.Unregister(s.id)
		closed++
	}
	return closed
}

func (h *Hub) closeAll(code int, reason, label string) int {
	sessions := h.Sessions()
	for _, s := range sessions {
		s.Close(code, reason, label)
		h.Unregister(s.id)
	}
	return len(sessions)
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if ctx.Err() == context.DeadlineExceeded {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}

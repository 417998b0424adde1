// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package websocket

import (
	"errors"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/safex/internal/auth"
	"github.com/tomtom215/safex/internal/ids"
	"github.com/tomtom215/safex/internal/logging"
	"github.com/tomtom215/safex/internal/metrics"
)

// Close reasons, also used as the safex_websocket_closed_total label.
const (
	ReasonClient       = "client"
	ReasonTokenExpired = "token_expired"
	ReasonSlowConsumer = "slow_consumer"
	ReasonIdleTimeout  = "idle_timeout"
	ReasonRateLimited  = "rate_limited"
	ReasonShutdown     = "shutdown"
	ReasonWriteError   = "write_error"
	ReasonUnregistered = "unregistered"
)

// ErrNotAuthenticated is returned when creating or registering a session
// without a verified principal.
var ErrNotAuthenticated = errors.New("websocket: session not authenticated")

// SessionConfig holds per-session timing and limits.
type SessionConfig struct {
	SendBuffer        int
	HeartbeatInterval time.Duration
	IdleTimeout       time.Duration
	ProbeTimeout      time.Duration
	WriteTimeout      time.Duration
	MaxMessageSize    int64

	// MessageRate is inbound frames per second; zero disables limiting.
	MessageRate  float64
	MessageBurst int

	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
}

// DefaultSessionConfig returns production timings.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		SendBuffer:        256,
		HeartbeatInterval: 30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ProbeTimeout:      10 * time.Second,
		WriteTimeout:      10 * time.Second,
		MaxMessageSize:    64 * 1024,
		MessageRate:       10,
		MessageBurst:      20,
	}
}

func (c SessionConfig) withDefaults() SessionConfig {
	d := DefaultSessionConfig()
	if c.SendBuffer <= 0 {
		c.SendBuffer = d.SendBuffer
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = d.HeartbeatInterval
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = d.IdleTimeout
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = d.ProbeTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = d.MaxMessageSize
	}
	if c.MessageBurst <= 0 {
		c.MessageBurst = d.MessageBurst
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Session is one monitoring console connection.
type Session struct {
	id        string
	userID    string
	role      string
	expiresAt time.Time

	conn    *websocket.Conn
	cfg     SessionConfig
	send    chan []byte
	limiter *rate.Limiter
	log     zerolog.Logger

	mu          sync.Mutex
	state       State
	topic       string
	closeCode   int
	closeReason string
	closeLabel  string

	lastSeen atomic.Int64
	done     chan struct{}
	finished chan struct{}
}

// NewSession wraps an upgraded connection for a verified principal. The
// session starts in StateAuthenticated.
func NewSession(conn *websocket.Conn, principal *auth.Principal, cfg SessionConfig) (*Session, error) {
	s, err := newSession(principal, cfg)
	if err != nil {
		return nil, err
	}
	s.conn = conn
	return s, nil
}

func newSession(principal *auth.Principal, cfg SessionConfig) (*Session, error) {
	if principal == nil || principal.ID == "" {
		return nil, ErrNotAuthenticated
	}
	cfg = cfg.withDefaults()
	if !principal.ExpiresAt.IsZero() && !cfg.Now().Before(principal.ExpiresAt) {
		return nil, auth.ErrAuthExpired
	}

	limit := rate.Inf
	if cfg.MessageRate > 0 {
		limit = rate.Limit(cfg.MessageRate)
	}
	id := ids.New()
	s := &Session{
		id:        id,
		userID:    principal.ID,
		role:      principal.Role,
		expiresAt: principal.ExpiresAt,
		cfg:       cfg,
		send:      make(chan []byte, cfg.SendBuffer),
		limiter:   rate.NewLimiter(limit, cfg.MessageBurst),
		log:       logging.WithComponent("websocket").With().Str("connection_id", id).Str("user_id", principal.ID).Logger(),
		state:     StateConnecting,
		done:      make(chan struct{}),
		finished:  make(chan struct{}),
	}
	s.lastSeen.Store(cfg.Now().UnixNano())
	if err := s.transition(StateAuthenticated); err != nil {
		return nil, err
	}
	return s, nil
}

// ID returns the connection id.
func (s *Session) ID() string { return s.id }

// UserID returns the authenticated user id.
func (s *Session) UserID() string { return s.userID }

// Role returns the authenticated role.
func (s *Session) Role() string { return s.role }

// ExpiresAt returns the access-token expiry; zero means none.
func (s *Session) ExpiresAt() time.Time { return s.expiresAt }

// Done is closed when the session starts closing.
func (s *Session) Done() <-chan struct{} { return s.done }

// Finished is closed once both pumps have exited and the session is
// unregistered.
func (s *Session) Finished() <-chan struct{} { return s.finished }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Topic returns the subscribed topic, or "" before subscribe.
func (s *Session) Topic() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.topic
}

// Expired reports whether the access token has expired at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.expiresAt.IsZero() && !now.Before(s.expiresAt)
}

func (s *Session) transition(to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transitionLocked(to)
}

func (s *Session) transitionLocked(to State) error {
	if err := checkTransition(s.state, to); err != nil {
		return err
	}
	s.log.Debug().Str("from", s.state.String()).Str("to", to.String()).Msg("session state changed")
	s.state = to
	return nil
}

// Subscribe sets the topic filter. The first subscribe moves the session
// through Subscribed to Active; later ones only replace the filter.
func (s *Session) Subscribe(topic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateAuthenticated:
		if err := s.transitionLocked(StateSubscribed); err != nil {
			return err
		}
		if err := s.transitionLocked(StateActive); err != nil {
			return err
		}
	case StateSubscribed, StateActive, StateIdle:
	default:
		return checkTransition(s.state, StateSubscribed)
	}
	s.topic = topic
	return nil
}

// Close starts closing the session with a WebSocket close code and reason.
// Only the first call has any effect.
func (s *Session) Close(code int, reason, label string) {
	s.mu.Lock()
	if s.state == StateClosing || s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	_ = s.transitionLocked(StateClosing)
	s.closeCode, s.closeReason, s.closeLabel = code, reason, label
	s.mu.Unlock()

	close(s.done)
	s.log.Debug().Int("code", code).Str("reason", label).Msg("closing monitoring session")
}

func (s *Session) closeInfo() (code int, reason, label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCode, s.closeReason, s.closeLabel
}

// enqueue queues a frame without blocking. It returns false when the
// session is closing or its buffer is full.
func (s *Session) enqueue(frame []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- frame:
		return true
	default:
		return false
	}
}

// reply queues a direct response; a full buffer closes the session.
func (s *Session) reply(msg Message) {
	if !s.enqueue(mustMarshal(msg)) {
		s.Close(websocket.CloseTryAgainLater, "send buffer full", ReasonSlowConsumer)
	}
}

// Start sends connection:established and runs the I/O pumps. When both
// pumps exit the session is unregistered from hub and becomes Closed.
func (s *Session) Start(hub *Hub) {
	s.reply(Message{Type: TypeConnectionEstablished, ConnectionID: s.id, UserID: s.userID})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.writePump()
	}()
	go func() {
		defer wg.Done()
		s.readPump()
	}()
	go func() {
		wg.Wait()
		hub.Unregister(s.id)
		s.finish()
	}()
}

func (s *Session) finish() {
	s.mu.Lock()
	if s.state == StateClosing {
		_ = s.transitionLocked(StateClosed)
	}
	s.mu.Unlock()
	close(s.finished)
}

// touch records inbound traffic and returns an Idle session to Active.
func (s *Session) touch() {
	now := s.cfg.Now()
	s.lastSeen.Store(now.UnixNano())
	_ = s.conn.SetReadDeadline(now.Add(s.cfg.IdleTimeout + s.cfg.ProbeTimeout))

	s.mu.Lock()
	if s.state == StateIdle {
		_ = s.transitionLocked(StateActive)
	}
	s.mu.Unlock()
}

// markIdle moves an Active or Subscribed session to Idle once the idle
// window has passed. It reports whether a probe should be sent.
func (s *Session) markIdle(now time.Time) bool {
	if now.Sub(time.Unix(0, s.lastSeen.Load())) < s.cfg.IdleTimeout {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateActive, StateSubscribed:
		return s.transitionLocked(StateIdle) == nil
	case StateAuthenticated:
		// Not yet subscribed; probe without a state change.
		return true
	default:
		return false
	}
}

func (s *Session) readPump() {
	defer s.Close(websocket.CloseNormalClosure, "", ReasonClient)

	s.conn.SetReadLimit(s.cfg.MaxMessageSize)
	_ = s.conn.SetReadDeadline(s.cfg.Now().Add(s.cfg.IdleTimeout + s.cfg.ProbeTimeout))
	s.conn.SetPongHandler(func(string) error {
		s.touch()
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.handleReadError(err)
			return
		}
		s.touch()
		metrics.WSMessagesReceived.Inc()

		if !s.limiter.Allow() {
			s.Close(websocket.ClosePolicyViolation, "rate limit exceeded", ReasonRateLimited)
			return
		}
		s.handleClientMessage(data)
	}
}

func (s *Session) handleReadError(err error) {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		s.Close(websocket.CloseGoingAway, "idle timeout", ReasonIdleTimeout)
		return
	}
	if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
		select {
		case <-s.done:
		default:
			s.log.Warn().Err(err).Msg("unexpected websocket close")
		}
	}
}

func (s *Session) handleClientMessage(data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.reply(Message{Type: TypeError, Detail: "invalid JSON message"})
		return
	}

	switch msg.Type {
	case TypeSubscribe:
		topic := strings.TrimSpace(msg.Topic)
		if topic == "" {
			s.reply(Message{Type: TypeError, Detail: "topic is required"})
			return
		}
		if err := s.Subscribe(topic); err != nil {
			s.reply(Message{Type: TypeError, Detail: "cannot subscribe in current state"})
			return
		}
		s.log.Info().Str("topic", topic).Msg("session subscribed")
		s.reply(Message{Type: TypeSubscriptionConfirmed, Topic: topic})
	case TypePing:
		s.reply(Message{Type: TypePong})
	default:
		s.reply(Message{Type: TypeError, Detail: "unknown message type: " + truncate(msg.Type, 64)})
	}
}

func (s *Session) writePump() {
	heartbeat := time.NewTicker(s.cfg.HeartbeatInterval)
	idleCheck := time.NewTicker(idleCheckInterval(s.cfg))
	defer func() {
		heartbeat.Stop()
		idleCheck.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case <-s.done:
			code, reason, _ := s.closeInfo()
			_ = s.conn.SetWriteDeadline(s.cfg.Now().Add(s.cfg.WriteTimeout))
			_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
			return

		case frame := <-s.send:
			if !s.write(websocket.TextMessage, frame) {
				return
			}

		case <-heartbeat.C:
			now := s.cfg.Now().UTC()
			if !s.write(websocket.TextMessage, mustMarshal(Message{Type: TypeHeartbeat, Timestamp: &now})) {
				return
			}

		case <-idleCheck.C:
			if s.markIdle(s.cfg.Now()) {
				if !s.write(websocket.PingMessage, nil) {
					return
				}
			}
		}
	}
}

func (s *Session) write(messageType int, data []byte) bool {
	_ = s.conn.SetWriteDeadline(s.cfg.Now().Add(s.cfg.WriteTimeout))
	if err := s.conn.WriteMessage(messageType, data); err != nil {
		s.log.Debug().Err(err).Msg("websocket write failed")
		s.Close(websocket.CloseAbnormalClosure, "", ReasonWriteError)
		return false
	}
	return true
}

func idleCheckInterval(cfg SessionConfig) time.Duration {
	d := cfg.ProbeTimeout
	if cfg.IdleTimeout < d {
		d = cfg.IdleTimeout
	}
	return d / 2
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

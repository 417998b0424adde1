// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	gws "github.com/gorilla/websocket"

	"github.com/tomtom215/safex/internal/alerts"
	"github.com/tomtom215/safex/internal/auth"
	"github.com/tomtom215/safex/internal/authz"
	"github.com/tomtom215/safex/internal/logging"
	"github.com/tomtom215/safex/internal/models"
	"github.com/tomtom215/safex/internal/pubsub"
	"github.com/tomtom215/safex/internal/store"
	"github.com/tomtom215/safex/internal/websocket"
)

// DefaultRetryAfter is advertised when alert ingestion hits an unavailable
// store.
const DefaultRetryAfter = 2 * time.Second

// Runner reports whether a background component is running.
type Runner interface {
	Running() bool
}

// Dependencies are the services the handlers call.
type Dependencies struct {
	Auth     *auth.Service
	Alerts   *alerts.Service
	Hub      *websocket.Hub
	Enforcer *authz.Enforcer

	// Readiness probes. Nil entries are skipped.
	Store      store.Store
	Bus        pubsub.Bus
	Dispatcher Runner
}

// HandlerConfig tunes request handling.
type HandlerConfig struct {
	// AllowedOrigins restricts browser WebSocket handshakes. "*" allows
	// any origin. Requests without an Origin header are allowed.
	AllowedOrigins []string

	Session      websocket.SessionConfig
	MaxBodyBytes int64
	RetryAfter   time.Duration
}

// Handler serves every SafeX endpoint.
type Handler struct {
	auth       *auth.Service
	alerts     *alerts.Service
	hub        *websocket.Hub
	enforcer   *authz.Enforcer
	store      store.Store
	bus        pubsub.Bus
	dispatcher Runner

	config   HandlerConfig
	upgrader gws.Upgrader
	audit    *logging.SecurityLogger
}

// NewHandler creates the handler set.
func NewHandler(deps Dependencies, cfg HandlerConfig) (*Handler, error) {
	if deps.Auth == nil || deps.Alerts == nil || deps.Hub == nil || deps.Enforcer == nil {
		return nil, errors.New("api handler requires auth, alerts, hub and enforcer")
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.RetryAfter <= 0 {
		cfg.RetryAfter = DefaultRetryAfter
	}

	h := &Handler{
		auth:       deps.Auth,
		alerts:     deps.Alerts,
		hub:        deps.Hub,
		enforcer:   deps.Enforcer,
		store:      deps.Store,
		bus:        deps.Bus,
		dispatcher: deps.Dispatcher,
		config:     cfg,
		audit:      logging.NewSecurityLogger(),
	}
	h.upgrader = gws.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
		Error:            upgradeError,
	}
	return h, nil
}

// upgradeError writes handshake failures in the standard envelope.
func upgradeError(w http.ResponseWriter, r *http.Request, status int, reason error) {
	rw := NewResponseWriter(w, r)
	switch status {
	case http.StatusForbidden:
		rw.Forbidden("origin not allowed")
	default:
		rw.Error(status, models.CodeValidation, reason.Error())
	}
}

// principal returns the authenticated caller stored by requireUser.
func principal(ctx context.Context) *auth.Principal {
	p, _ := auth.PrincipalFromContext(ctx)
	return p
}

// clientIP is the remote address after chi's RealIP rewrite.
func clientIP(r *http.Request) string {
	return r.RemoteAddr
}

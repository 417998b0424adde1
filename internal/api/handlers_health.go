// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/safex/internal/models"
	"github.com/tomtom215/safex/internal/pubsub"
)

// readinessTimeout bounds the store ping in HealthReady.
const readinessTimeout = 2 * time.Second

// Component states reported by HealthReady.
const (
	componentUp   = "up"
	componentDown = "down"
)

// HealthLive reports that the process is serving HTTP.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(models.HealthStatus{Status: "ok"})
}

// HealthReady reports whether the store, the bus and the dispatcher are
// usable. Any failed component yields 503.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	components := make(map[string]string, 3)
	ready := true
	set := func(name string, ok bool) {
		if ok {
			components[name] = componentUp
			return
		}
		components[name] = componentDown
		ready = false
	}

	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		set("store", h.store.Ping(ctx) == nil)
		cancel()
	}
	if h.bus != nil {
		set("bus", pubsub.Connected(h.bus))
	}
	if h.dispatcher != nil {
		set("dispatcher", h.dispatcher.Running())
	}

	status := models.HealthStatus{Status: "ready", Components: components}
	if !ready {
		status.Status = "not_ready"
		NewResponseWriter(w, r).writeJSON(http.StatusServiceUnavailable, models.APIResponse{Success: false, Data: status})
		return
	}
	NewResponseWriter(w, r).Success(status)
}

// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/safex/internal/alerts"
	"github.com/tomtom215/safex/internal/auth"
	"github.com/tomtom215/safex/internal/models"
)

// CreateAlert ingests an alert from a detection agent. The response is
// written once the alert is committed; WebSocket delivery continues
// asynchronously through the dispatcher.
func (h *Handler) CreateAlert(w http.ResponseWriter, r *http.Request) {
	creds := auth.AgentCredentialsFromRequest(r)
	if creds.APIKey == "" && creds.BearerToken == "" {
		h.audit.LogAgentRejected(clientIP(r), "missing credentials")
		writeServiceError(w, r, auth.ErrAuthInvalid, 0)
		return
	}

	var in alerts.CreateAlertInput
	if err := decodeJSON(w, r, h.config.MaxBodyBytes, &in); err != nil {
		writeServiceError(w, r, err, 0)
		return
	}

	alert, err := h.alerts.CreateAlert(r.Context(), creds, in)
	if err != nil {
		if isAuthError(err) {
			h.audit.LogAgentRejected(clientIP(r), err.Error())
		}
		writeServiceError(w, r, err, h.config.RetryAfter)
		return
	}

	NewResponseWriter(w, r).Created(models.CreateAlertResponse{
		AlertID:   alert.ID,
		Timestamp: alert.Timestamp,
	})
}

// ListAlerts returns alerts newest first, filtered by feed_id and status.
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListAlerts(r)
	if err != nil {
		writeServiceError(w, r, err, 0)
		return
	}

	list, err := h.alerts.ListAlerts(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err, 0)
		return
	}

	limit := filter.Limit
	if limit == 0 {
		limit = alerts.DefaultListLimit
	}
	NewResponseWriter(w, r).Success(models.AlertListResponse{
		Alerts: list,
		Count:  len(list),
		Limit:  limit,
	})
}

// GetAlert returns one alert by id.
func (h *Handler) GetAlert(w http.ResponseWriter, r *http.Request) {
	alert, err := h.alerts.GetAlert(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err, 0)
		return
	}
	NewResponseWriter(w, r).Success(alert)
}

// ResolveAlert closes an active alert. An already resolved alert is left
// unchanged and reported as 409 with its current resolution.
func (h *Handler) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	p := principal(r.Context())
	if p == nil {
		writeServiceError(w, r, auth.ErrAuthInvalid, 0)
		return
	}

	var in alerts.ResolveInput
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, h.config.MaxBodyBytes, &in); err != nil {
			writeServiceError(w, r, err, 0)
			return
		}
	}

	alert, err := h.alerts.ResolveAlert(r.Context(), chi.URLParam(r, "id"), p.ID, in)
	if errors.Is(err, alerts.ErrAlreadyResolved) && alert != nil {
		details := map[string]interface{}{
			"alert_id":    alert.ID,
			"status":      alert.Status,
			"resolved_by": alert.ResolvedBy,
		}
		if alert.ResolvedAt != nil {
			details["resolved_at"] = alert.ResolvedAt
		}
		NewResponseWriter(w, r).ErrorWithDetails(http.StatusConflict, &models.APIError{
			Code:    models.CodeAlreadyResolved,
			Message: "alert already resolved",
			Details: details,
		})
		return
	}
	if err != nil {
		writeServiceError(w, r, err, 0)
		return
	}
	NewResponseWriter(w, r).Success(alert)
}

func isAuthError(err error) bool {
	return errors.Is(err, auth.ErrAuthInvalid) ||
		errors.Is(err, auth.ErrAuthExpired) ||
		errors.Is(err, auth.ErrForbidden)
}

// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package models

import "time"

// APIResponse is the envelope used by every JSON endpoint.
//
// Success:
//
//	{"success": true, "data": {...}}
//
// Failure:
//
//	{
//	  "success": false,
//	  "error": {
//	    "code": "AUTH_EXPIRED",
//	    "message": "access token expired",
//	    "request_id": "7d1c..."
//	  }
//	}
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError is the machine-readable failure body.
type APIError struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	RequestID string                 `json:"request_id,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// Error codes returned in APIError.Code.
const (
	CodeAuthExpired        = "AUTH_EXPIRED"
	CodeAuthInvalid        = "AUTH_INVALID"
	CodeAuthRevoked        = "AUTH_REVOKED"
	CodeChainCompromised   = "CHAIN_COMPROMISED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeForbidden          = "FORBIDDEN"
	CodeValidation         = "VALIDATION_ERROR"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeAlreadyResolved    = "ALREADY_RESOLVED"
	CodeUnavailable        = "SERVICE_UNAVAILABLE"
	CodeRateLimited        = "RATE_LIMIT_EXCEEDED"
	CodeInternal           = "INTERNAL_ERROR"
)

// CreateAlertResponse is returned by POST /api/v1/alerts.
type CreateAlertResponse struct {
	AlertID   string    `json:"alert_id"`
	Timestamp time.Time `json:"timestamp"`
}

// AlertListResponse is returned by GET /api/v1/alerts.
type AlertListResponse struct {
	Alerts []*Alert `json:"alerts"`
	Count  int      `json:"count"`
	Limit  int      `json:"limit"`
}

// HealthStatus is returned by the health endpoints.
type HealthStatus struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

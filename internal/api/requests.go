// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/safex/internal/models"
	"github.com/tomtom215/safex/internal/validation"
)

// DefaultMaxBodyBytes bounds JSON request bodies.
const DefaultMaxBodyBytes = 1 << 20

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email        string `json:"email" validate:"required,email,max=254"`
	Password     string `json:"password" validate:"required,password"`
	Name         string `json:"name" validate:"required,min=1,max=100"`
	Phone        string `json:"phone,omitempty" validate:"omitempty,e164"`
	Organization string `json:"organization,omitempty" validate:"max=200"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

// RefreshRequest is the body of POST /auth/refresh and /auth/logout.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required,max=512"`
}

// ListAlertsRequest holds the query of GET /alerts.
type ListAlertsRequest struct {
	FeedID string `json:"feed_id" validate:"omitempty,max=128"`
	Status string `json:"status" validate:"omitempty,oneof=active resolved false_alarm"`
	Limit  int    `json:"limit"`
}

// decodeJSON reads a single JSON object from the body into dst. Unknown
// fields are ignored; trailing data is rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst interface{}) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	body := http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(body)

	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return errRequestTooLarge
		case errors.Is(err, io.EOF):
			return validation.Invalid("body", "request body is required")
		default:
			return validation.Invalid("body", "request body must be a valid JSON object")
		}
	}
	if dec.More() {
		return validation.Invalid("body", "request body must contain a single JSON object")
	}
	return nil
}

// decodeAndValidate decodes the body into dst and runs struct validation.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, maxBytes int64, dst interface{}) error {
	if err := decodeJSON(w, r, maxBytes, dst); err != nil {
		return err
	}
	return validation.ValidateStruct(dst)
}

// parseListAlerts reads and validates the GET /alerts query.
func parseListAlerts(r *http.Request) (models.AlertFilter, error) {
	q := r.URL.Query()
	req := ListAlertsRequest{
		FeedID: strings.TrimSpace(q.Get("feed_id")),
		Status: strings.TrimSpace(q.Get("status")),
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return models.AlertFilter{}, validation.Invalid("limit", "limit must be an integer")
		}
		req.Limit = n
	}
	if err := validation.ValidateStruct(&req); err != nil {
		return models.AlertFilter{}, err
	}
	return models.AlertFilter{
		FeedID: req.FeedID,
		Status: models.AlertStatus(req.Status),
		Limit:  req.Limit,
	}, nil
}

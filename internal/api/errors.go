// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/safex/internal/auth"
	"github.com/tomtom215/safex/internal/logging"
	"github.com/tomtom215/safex/internal/models"
	"github.com/tomtom215/safex/internal/store"
	"github.com/tomtom215/safex/internal/validation"
)

// errRequestTooLarge is returned by decodeJSON when the body exceeds the
// configured limit.
var errRequestTooLarge = errors.New("request body too large")

// authErrorCodes maps token lifecycle errors to their 401 codes.
var authErrorCodes = []struct {
	err     error
	code    string
	message string
}{
	{auth.ErrChainCompromised, models.CodeChainCompromised, "refresh token reuse detected; sign in again"},
	{auth.ErrAuthExpired, models.CodeAuthExpired, "token expired"},
	{auth.ErrAuthRevoked, models.CodeAuthRevoked, "token revoked"},
	{auth.ErrInvalidCredentials, models.CodeInvalidCredentials, "invalid email or password"},
	{auth.ErrAuthInvalid, models.CodeAuthInvalid, "invalid or missing token"},
}

// writeServiceError translates a service error into an envelope. A
// persistence failure becomes 503; retryAfter > 0 adds Retry-After for
// operations the client may repeat.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, retryAfter time.Duration) {
	rw := NewResponseWriter(w, r)

	var verr *validation.RequestValidationError
	if errors.As(err, &verr) {
		rw.ErrorWithDetails(http.StatusBadRequest, verr.ToAPIError())
		return
	}
	if errors.Is(err, validation.ErrInvalid) {
		rw.BadRequest(err.Error())
		return
	}
	if errors.Is(err, errRequestTooLarge) {
		rw.Error(http.StatusRequestEntityTooLarge, models.CodeValidation, "request body too large")
		return
	}

	for _, m := range authErrorCodes {
		if errors.Is(err, m.err) {
			rw.Unauthorized(m.code, m.message)
			return
		}
	}

	switch {
	case errors.Is(err, auth.ErrForbidden):
		rw.Forbidden("insufficient permissions")
	case errors.Is(err, store.ErrAlreadyResolved):
		rw.Conflict(models.CodeAlreadyResolved, "alert already resolved")
	case errors.Is(err, store.ErrConflict):
		rw.Conflict(models.CodeConflict, "resource already exists")
	case errors.Is(err, store.ErrNotFound):
		rw.NotFound("resource not found")
	case errors.Is(err, store.ErrPersistenceFailure):
		logging.Ctx(r.Context()).Error().Err(err).Msg("store unavailable")
		rw.ServiceUnavailable("storage temporarily unavailable", retryAfter)
	default:
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("unhandled service error")
		rw.InternalError("internal server error")
	}
}

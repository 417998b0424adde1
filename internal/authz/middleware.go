// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package authz

import (
	"errors"
	"net/http"

	"github.com/tomtom215/safex/internal/auth"
	"github.com/tomtom215/safex/internal/logging"
)

// ErrorWriter renders a failed authorization. err is auth.ErrAuthInvalid
// when no principal is present, auth.ErrForbidden when the role is denied,
// and the enforcement error otherwise.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Middleware enforces role permissions on routes. It expects an
// authentication middleware to have stored an auth.Principal earlier in
// the chain.
type Middleware struct {
	enforcer *Enforcer
	onError  ErrorWriter
}

// NewMiddleware creates an authorization middleware. A nil onError writes
// plain-text errors.
func NewMiddleware(enforcer *Enforcer, onError ErrorWriter) *Middleware {
	if onError == nil {
		onError = plainError
	}
	return &Middleware{enforcer: enforcer, onError: onError}
}

// Require allows the request through only if the principal's role may
// perform action on object.
func (m *Middleware) Require(object, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.PrincipalFromContext(r.Context())
			if !ok {
				m.onError(w, r, auth.ErrAuthInvalid)
				return
			}

			allowed, err := m.enforcer.Enforce(p.Role, object, action)
			if err != nil {
				logging.Ctx(r.Context()).Error().Err(err).Str("role", p.Role).Msg("authorization error")
				m.onError(w, r, err)
				return
			}
			if !allowed {
				logging.Ctx(r.Context()).Debug().
					Str("principal", p.ID).
					Str("role", p.Role).
					Str("object", object).
					Str("action", action).
					Msg("authorization denied")
				m.onError(w, r, auth.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func plainError(w http.ResponseWriter, _ *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrAuthInvalid):
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	case errors.Is(err, auth.ErrForbidden):
		http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/safex/internal/authz"
	"github.com/tomtom215/safex/internal/middleware"
)

// Router wires handlers and middleware into a chi router.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	authz         *authz.Middleware
}

// NewRouter creates a router. A nil config uses DefaultChiMiddlewareConfig.
func NewRouter(handler *Handler, config *ChiMiddlewareConfig) *Router {
	return &Router{
		handler:       handler,
		chiMiddleware: NewChiMiddleware(config),
		authz: authz.NewMiddleware(handler.enforcer, func(w http.ResponseWriter, r *http.Request, err error) {
			writeServiceError(w, r, err, 0)
		}),
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	h := router.handler
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.AccessLog)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	// Legacy monitoring path used by deployed consoles.
	r.With(middleware.PrometheusMetrics, router.chiMiddleware.RateLimit()).Get("/monitoring", h.WebSocket)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.PrometheusMetrics)

		r.Route("/auth", func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit())
			r.With(router.chiMiddleware.RateLimitLogin()).Post("/login", h.Login)
			r.With(router.chiMiddleware.RateLimitLogin()).Post("/register", h.Register)
			r.Post("/refresh", h.Refresh)
			r.Post("/logout", h.Logout)
			r.With(h.requireUser).Get("/me", h.Me)
		})

		// Agents authenticate inside the alert service.
		r.With(router.chiMiddleware.RateLimitAgents()).Post("/alerts", h.CreateAlert)

		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit())
			r.Use(h.requireUser)

			r.With(router.authz.Require(authz.ObjectAlerts, authz.ActionRead)).Get("/alerts", h.ListAlerts)
			r.With(router.authz.Require(authz.ObjectAlerts, authz.ActionRead)).Get("/alerts/{id}", h.GetAlert)
			r.With(router.authz.Require(authz.ObjectAlerts, authz.ActionResolve)).Post("/alerts/{id}/resolve", h.ResolveAlert)
		})

		r.With(router.chiMiddleware.RateLimit()).Get("/ws", h.WebSocket)
	})

	return r
}

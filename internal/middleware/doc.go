// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

/*
Package middleware provides the HTTP infrastructure middleware shared by all
SafeX routes.

Key Components:

  - RequestID: accepts or generates X-Request-ID and seeds the logging
    context with request and correlation ids
  - PrometheusMetrics: request count, latency and in-flight gauge, labelled
    by chi route pattern to keep cardinality bounded
  - AccessLog: one structured zerolog line per request

Middleware Stack:

The router installs them in this order:

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.AccessLog)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors)
	r.With(middleware.PrometheusMetrics).Route(...)

PrometheusMetrics and AccessLog wrap the ResponseWriter but keep
http.Hijacker working so WebSocket upgrades pass through.
*/
package middleware

// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package authz

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DecisionsTotal counts authorization decisions.
	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safex_authz_decisions_total",
			Help: "Authorization decisions by role, object, action and outcome",
		},
		[]string{"role", "object", "action", "decision"},
	)

	// CacheLookups counts decision cache lookups.
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safex_authz_cache_lookups_total",
			Help: "Authorization decision cache lookups by hit",
		},
		[]string{"hit"},
	)
)

func recordDecision(role, object, action string, allowed bool) {
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	DecisionsTotal.WithLabelValues(role, object, action, decision).Inc()
}

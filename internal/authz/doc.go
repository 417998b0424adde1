// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

/*
Package authz decides which roles may perform which actions, using a casbin
RBAC model.

Roles inherit upward: operator inherits viewer, admin inherits operator. The
agent role stands alone and may only create alerts.

	viewer   alerts:read, monitoring:connect
	operator alerts:resolve
	agent    alerts:create

The built-in policy can be replaced with a CSV file (security.policy_path)
using the same "p, role, object, action" and "g, role, parent" lines.
Decisions are cached per (role, object, action) for security.authz_cache_ttl.
*/
package authz

// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

/*
Package api exposes the SafeX HTTP surface on a chi router.

Routes:

	POST /api/v1/auth/register        create a console user, returns a token pair
	POST /api/v1/auth/login           email and password, returns a token pair
	POST /api/v1/auth/refresh         rotate a refresh token
	POST /api/v1/auth/logout          revoke a refresh token
	GET  /api/v1/auth/me              current user (bearer)
	POST /api/v1/alerts               agent alert ingestion (X-API-Key or agent bearer)
	GET  /api/v1/alerts               list alerts, newest first (bearer)
	GET  /api/v1/alerts/{id}          one alert (bearer)
	POST /api/v1/alerts/{id}/resolve  resolve an alert (operator or admin)
	GET  /api/v1/ws, GET /monitoring  monitoring WebSocket
	GET  /api/v1/health/live          liveness
	GET  /api/v1/health/ready         store and bus readiness
	GET  /metrics                     Prometheus exposition

Every JSON response uses the models.APIResponse envelope. Failures carry a
machine-readable code and the request id:

	{"success": false, "error": {"code": "AUTH_EXPIRED", "message": "...", "request_id": "..."}}

Service errors are translated to HTTP in one place (writeServiceError), so
handlers only decide what to call.
*/
package api

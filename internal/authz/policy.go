// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package authz

// Objects.
const (
	ObjectAlerts     = "alerts"
	ObjectMonitoring = "monitoring"
)

// Actions.
const (
	ActionRead    = "read"
	ActionCreate  = "create"
	ActionResolve = "resolve"
	ActionConnect = "connect"
)

const builtinModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

const builtinPolicy = `
# role, object, action
p, viewer, alerts, read
p, viewer, monitoring, connect
p, operator, alerts, resolve
p, agent, alerts, create

# role inheritance
g, operator, viewer
g, admin, operator
`

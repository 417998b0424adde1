// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

/*
Package supervisor runs the SafeX process services under suture v4.

The tree isolates failures by layer:

	RootSupervisor ("safex")
	├── DataSupervisor ("data-layer")
	│   ├── EmbeddedNATSService (single node deployments)
	│   └── TokenSweeperService
	├── MessagingSupervisor ("messaging-layer")
	│   ├── HubService
	│   └── DispatcherService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Crashed services restart with suture's backoff. Supervisor events are
logged through sutureslog using the zerolog-backed slog logger from
internal/logging.

Usage:

	tree := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{}, supervisor.Services{
	    Hub:        services.NewHubService(hub),
	    Dispatcher: services.NewDispatcherService(dispatcher),
	    HTTP:       services.NewHTTPServerService(server, 10*time.Second),
	})
	err := tree.Serve(ctx)

Each Services field has a fixed layer. Tree.Add places extra services in
a named Layer.

Services are in the services subpackage.
*/
package supervisor

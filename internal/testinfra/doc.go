// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

// Package testinfra provides containers for integration tests.
//
// Everything here is behind the integration build tag:
//
//	go test -tags integration ./internal/store/pgstore/...
//
// Tests call SkipIfNoDocker first so they degrade to a skip on machines
// without a Docker daemon.
//
//	func TestPostgres(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    pg, err := testinfra.NewPostgresContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, pg)
//	    // pg.DSN is ready for pgstore.Open
//	}
package testinfra

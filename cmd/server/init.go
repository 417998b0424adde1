// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package main

import (
	"context"
	"fmt"

	"github.com/tomtom215/safex/internal/config"
	"github.com/tomtom215/safex/internal/logging"
	"github.com/tomtom215/safex/internal/pubsub"
	"github.com/tomtom215/safex/internal/store"
	"github.com/tomtom215/safex/internal/store/badgerstore"
	"github.com/tomtom215/safex/internal/store/pgstore"
)

// openStore opens the configured engine and verifies it is reachable.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	db := cfg.Database
	switch db.Driver {
	case "postgres":
		pg, err := pgstore.Open(pgstore.Options{
			DSN:             db.PostgresDSN,
			MaxOpenConns:    db.MaxOpenConns,
			MaxIdleConns:    db.MaxIdleConns,
			ConnMaxLifetime: db.ConnMaxLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		if err := pg.Migrate(ctx); err != nil {
			_ = pg.Close()
			return nil, fmt.Errorf("migrate postgres store: %w", err)
		}
		logging.Info().Msg("PostgreSQL store ready")
		return pg, nil

	case "badger":
		bs, err := badgerstore.Open(badgerstore.Options{Path: db.BadgerPath, InMemory: db.InMemory})
		if err != nil {
			return nil, fmt.Errorf("open badger store: %w", err)
		}
		logging.Info().Str("path", db.BadgerPath).Bool("in_memory", db.InMemory).Msg("Badger store ready")
		return bs, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", db.Driver)
	}
}

// openBus starts the embedded NATS server when configured and connects the
// alert bus, wrapped in a publish circuit breaker. broker is nil unless an
// embedded server was started.
func openBus(cfg *config.Config) (bus *pubsub.BreakerBus, broker *pubsub.EmbeddedServer, err error) {
	natsCfg := pubsub.NATSConfig{
		URL:           cfg.NATS.URL,
		Name:          cfg.NATS.ClientName,
		MaxReconnects: cfg.NATS.MaxReconnects,
		ReconnectWait: cfg.NATS.ReconnectWait,
	}

	if cfg.PubSub.Driver != pubsub.DriverMemory && cfg.NATS.EmbeddedServer {
		broker, err = pubsub.NewEmbeddedServer(pubsub.EmbeddedServerConfig{
			Host: cfg.NATS.Host,
			Port: cfg.NATS.Port,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("start embedded NATS server: %w", err)
		}
		natsCfg.URL = broker.ClientURL()
		logging.Info().Str("url", natsCfg.URL).Msg("Embedded NATS server started")
	}

	inner, err := pubsub.Open(cfg.PubSub.Driver, natsCfg)
	if err != nil {
		if broker != nil {
			_ = broker.Shutdown(context.Background())
		}
		return nil, nil, fmt.Errorf("connect alert bus: %w", err)
	}

	bus = pubsub.NewBreakerBus(inner, pubsub.BreakerConfig{
		FailureThreshold: cfg.PubSub.BreakerFailureThreshold,
		Timeout:          cfg.PubSub.BreakerTimeout,
	})
	return bus, broker, nil
}

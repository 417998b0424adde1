// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package pubsub

import "fmt"

// Transport drivers accepted by Open.
const (
	DriverMemory        = "memory"
	DriverNATS          = "nats"
	DriverWatermillNATS = "watermill-nats"
)

// Open creates the bus for driver. The memory driver ignores cfg.
func Open(driver string, cfg NATSConfig) (Bus, error) {
	switch driver {
	case DriverMemory:
		return NewGoChannelBus(int64(cfg.withDefaults().BufferSize)), nil
	case DriverNATS:
		return NewNATSBus(cfg)
	case DriverWatermillNATS:
		return NewWatermillNATSBus(cfg)
	default:
		return nil, fmt.Errorf("unknown pubsub driver %q", driver)
	}
}

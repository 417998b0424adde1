// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// Layer identifies one child supervisor of the tree.
type Layer int

const (
	// LayerData holds the embedded broker and the refresh-token sweeper.
	LayerData Layer = iota
	// LayerMessaging holds the session hub and the alert dispatcher.
	LayerMessaging
	// LayerAPI holds the HTTP server.
	LayerAPI
)

var layerNames = [...]string{
	LayerData:      "data-layer",
	LayerMessaging: "messaging-layer",
	LayerAPI:       "api-layer",
}

func (l Layer) String() string {
	if l < 0 || int(l) >= len(layerNames) {
		return fmt.Sprintf("layer(%d)", int(l))
	}
	return layerNames[l]
}

// TreeConfig holds suture restart and shutdown settings. Zero fields take
// suture's documented defaults.
type TreeConfig struct {
	FailureThreshold float64
	FailureDecay     float64
	FailureBackoff   time.Duration
	ShutdownTimeout  time.Duration
}

func (c TreeConfig) withDefaults() TreeConfig {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.FailureDecay <= 0 {
		c.FailureDecay = 30
	}
	if c.FailureBackoff <= 0 {
		c.FailureBackoff = 15 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	return c
}

func (c TreeConfig) spec() suture.Spec {
	return suture.Spec{
		FailureThreshold: c.FailureThreshold,
		FailureDecay:     c.FailureDecay,
		FailureBackoff:   c.FailureBackoff,
		Timeout:          c.ShutdownTimeout,
	}
}

// Services are the long-running parts of a SafeX process. Nil fields are
// skipped. Each field's layer is fixed, and within the messaging layer the
// hub is added before the dispatcher so the dispatcher is stopped first.
type Services struct {
	Broker     suture.Service
	Sweeper    suture.Service
	Hub        suture.Service
	Dispatcher suture.Service
	HTTP       suture.Service
}

func (s Services) placements() []struct {
	layer Layer
	svc   suture.Service
} {
	return []struct {
		layer Layer
		svc   suture.Service
	}{
		{LayerData, s.Broker},
		{LayerData, s.Sweeper},
		{LayerMessaging, s.Hub},
		{LayerMessaging, s.Dispatcher},
		{LayerAPI, s.HTTP},
	}
}

// SupervisorTree supervises a SafeX process. A crash in one layer is
// restarted without touching the others, so the API keeps serving while
// the dispatcher reconnects.
type SupervisorTree struct {
	root   *suture.Supervisor
	layers [len(layerNames)]*suture.Supervisor
	config TreeConfig
}

// NewSupervisorTree builds the root "safex" supervisor with one child per
// layer and places svcs into their layers. A nil logger uses slog.Default.
func NewSupervisorTree(logger *slog.Logger, cfg TreeConfig, svcs Services) *SupervisorTree {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	// Children inherit the event hook from the root.
	handler := &sutureslog.Handler{Logger: logger}
	rootSpec := cfg.spec()
	rootSpec.EventHook = handler.MustHook()

	t := &SupervisorTree{
		root:   suture.New("safex", rootSpec),
		config: cfg,
	}
	for l := range t.layers {
		t.layers[l] = suture.New(Layer(l).String(), cfg.spec())
		t.root.Add(t.layers[l])
	}
	for _, p := range svcs.placements() {
		if p.svc != nil {
			t.Add(p.layer, p.svc)
		}
	}
	return t
}

// Add places svc in layer. It panics on an unknown layer.
func (t *SupervisorTree) Add(layer Layer, svc suture.Service) suture.ServiceToken {
	if layer < 0 || int(layer) >= len(t.layers) {
		panic(fmt.Sprintf("supervisor: unknown %s", layer))
	}
	return t.layers[layer].Add(svc)
}

// Root returns the root supervisor.
func (t *SupervisorTree) Root() *suture.Supervisor {
	return t.root
}

// Serve runs the tree until ctx is cancelled.
func (t *SupervisorTree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground runs the tree in a goroutine. The returned channel
// receives Serve's result.
func (t *SupervisorTree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport lists services that did not stop within the
// shutdown timeout.
func (t *SupervisorTree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}

// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package logging

import (
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"
)

// sentryHook forwards error, fatal and panic events to Sentry.
type sentryHook struct {
	hub *sentry.Hub
}

// activeSentry is the hub installed by the last Init, for Flush.
var activeSentry *sentry.Hub

func newSentryHook(dsn, environment string) (*sentryHook, error) {
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
	})
	if err != nil {
		return nil, err
	}
	hub := sentry.NewHub(client, sentry.NewScope())
	activeSentry = hub
	return &sentryHook{hub: hub}, nil
}

// Run implements zerolog.Hook.
func (h *sentryHook) Run(_ *zerolog.Event, level zerolog.Level, message string) {
	var sentryLevel sentry.Level
	switch level {
	case zerolog.ErrorLevel:
		sentryLevel = sentry.LevelError
	case zerolog.FatalLevel, zerolog.PanicLevel:
		sentryLevel = sentry.LevelFatal
	default:
		return
	}

	h.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentryLevel)
		h.hub.CaptureMessage(message)
	})
}

// Flush waits up to timeout for buffered Sentry events. No-op without a DSN.
func Flush(timeout time.Duration) {
	mu.RLock()
	hub := activeSentry
	mu.RUnlock()
	if hub != nil {
		hub.Flush(timeout)
	}
}

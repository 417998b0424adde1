// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/tomtom215/safex/internal/alerts"
	"github.com/tomtom215/safex/internal/api"
	"github.com/tomtom215/safex/internal/auth"
	"github.com/tomtom215/safex/internal/authz"
	"github.com/tomtom215/safex/internal/config"
	"github.com/tomtom215/safex/internal/logging"
	"github.com/tomtom215/safex/internal/supervisor"
	"github.com/tomtom215/safex/internal/supervisor/services"
	ws "github.com/tomtom215/safex/internal/websocket"
)

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("SafeX stopped with error")
		logging.Flush(2 * time.Second)
		os.Exit(1)
	}
}

//nolint:gocyclo // sequential startup wiring
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Caller:      cfg.Logging.Caller,
		Timestamp:   true,
		SentryDSN:   cfg.Logging.SentryDSN,
		Environment: cfg.Server.Environment,
	})
	defer logging.Flush(2 * time.Second)

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("store", cfg.Database.Driver).
		Str("pubsub", cfg.PubSub.Driver).
		Msg("Starting SafeX")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()

	bus, broker, err := openBus(cfg)
	if err != nil {
		return err
	}
	if broker != nil {
		defer func() {
			shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer stop()
			_ = broker.Shutdown(shutdownCtx)
		}()
	}
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing alert bus")
		}
	}()

	tokens, err := auth.NewTokenManager(auth.TokenManagerConfig{
		Secret: cfg.Auth.JWTSecret,
		Issuer: cfg.Auth.Issuer,
		TTL:    cfg.Auth.AccessTokenTTL,
		Leeway: cfg.Auth.ClockSkew,
	})
	if err != nil {
		return fmt.Errorf("token manager: %w", err)
	}
	authSvc, err := auth.NewService(st, tokens, auth.ServiceConfig{
		RefreshTTL:   cfg.Auth.RefreshTokenTTL,
		BcryptCost:   cfg.Auth.BcryptCost,
		RetryBackoff: cfg.Database.RetryBackoff,
	})
	if err != nil {
		return fmt.Errorf("auth service: %w", err)
	}
	alertSvc, err := alerts.NewService(st, bus, auth.NewAgentAuthenticator(cfg.Auth.AgentAPIKeys, tokens), alerts.ServiceConfig{
		RetryBackoff: cfg.Database.RetryBackoff,
	})
	if err != nil {
		return fmt.Errorf("alert service: %w", err)
	}
	enforcer, err := authz.NewEnforcer(authz.EnforcerConfig{
		PolicyPath: cfg.Security.PolicyPath,
		CacheTTL:   cfg.Security.AuthzCacheTTL,
	})
	if err != nil {
		return fmt.Errorf("authorization: %w", err)
	}
	defer enforcer.Close()

	hub := ws.NewHub(ws.HubConfig{
		ExpiryCheckInterval: cfg.WebSocket.ExpiryCheckInterval,
		StatusInterval:      cfg.WebSocket.StatusInterval,
		BusConnected:        bus.Connected,
	})
	dispatcher := ws.NewDispatcher(hub, bus, ws.DispatcherConfig{
		ReconnectInitial: cfg.PubSub.ReconnectInitial,
		ReconnectMax:     cfg.PubSub.ReconnectMax,
	})
	// A process that cannot receive alerts must not accept consoles.
	if err := dispatcher.Start(ctx); err != nil {
		return fmt.Errorf("alert dispatcher: %w", err)
	}

	handler, err := api.NewHandler(api.Dependencies{
		Auth:       authSvc,
		Alerts:     alertSvc,
		Hub:        hub,
		Enforcer:   enforcer,
		Store:      st,
		Bus:        bus,
		Dispatcher: dispatcher,
	}, api.HandlerConfig{
		AllowedOrigins: cfg.Security.AllowedOrigins,
		Session:        sessionConfig(cfg),
	})
	if err != nil {
		return fmt.Errorf("api handler: %w", err)
	}
	router := api.NewRouter(handler, middlewareConfig(cfg))

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           router.SetupChi(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	svcs := supervisor.Services{
		Sweeper:    services.NewTokenSweeperService(authSvc, cfg.Auth.SweepInterval),
		Hub:        services.NewHubService(hub),
		Dispatcher: services.NewDispatcherService(dispatcher),
		HTTP:       services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout),
	}
	if broker != nil {
		svcs.Broker = services.NewEmbeddedNATSService(broker, cfg.Server.ShutdownTimeout)
	}
	tree := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: cfg.Supervisor.FailureThreshold,
		FailureDecay:     cfg.Supervisor.FailureDecay,
		FailureBackoff:   cfg.Supervisor.FailureBackoff,
		ShutdownTimeout:  cfg.Supervisor.ShutdownTimeout,
	}, svcs)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	dispatcher.Stop()
	cancel()
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("SafeX stopped gracefully")
	return nil
}

func sessionConfig(cfg *config.Config) ws.SessionConfig {
	sc := ws.DefaultSessionConfig()
	w := cfg.WebSocket
	if w.SendBuffer > 0 {
		sc.SendBuffer = w.SendBuffer
	}
	if w.HeartbeatInterval > 0 {
		sc.HeartbeatInterval = w.HeartbeatInterval
	}
	if w.IdleTimeout > 0 {
		sc.IdleTimeout = w.IdleTimeout
	}
	if w.ProbeTimeout > 0 {
		sc.ProbeTimeout = w.ProbeTimeout
	}
	if w.MaxMessageSize > 0 {
		sc.MaxMessageSize = w.MaxMessageSize
	}
	sc.MessageRate = w.MessageRate
	sc.MessageBurst = w.MessageBurst
	return sc
}

func middlewareConfig(cfg *config.Config) *api.ChiMiddlewareConfig {
	mw := api.DefaultChiMiddlewareConfig()
	s := cfg.Security
	mw.CORSAllowedOrigins = s.AllowedOrigins
	if s.RateLimitRequests > 0 {
		mw.RateLimitRequests = s.RateLimitRequests
		mw.RateLimitWindow = s.RateLimitWindow
	}
	if s.LoginRateLimit > 0 {
		mw.LoginRateLimit = s.LoginRateLimit
		mw.LoginRateWindow = s.LoginRateWindow
	}
	mw.RateLimitDisabled = s.RateLimitDisabled
	return mw
}

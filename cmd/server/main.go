// SingularSync - DDR Duration to Singular.Live Timer Synchronization
// Copyright 2026 Elliott W.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elliottw/singularsync

// Package main is the entry point for the SingularSync server.
//
// SingularSync mirrors clip durations from a TriCaster's DDR slots onto
// timer fields in Singular.Live overlay graphics. It polls the device's
// XML status endpoint, converts each clip duration into minutes and
// seconds, and patches the mapped control app fields so on-air countdown
// timers always match the loaded clip.
//
// Startup order:
//
//  1. Configuration: layered load via koanf (defaults, YAML file, env)
//  2. Logging: zerolog, JSON by default
//  3. Clients: Singular.Live control API, TriCaster behind a circuit breaker
//  4. Registry: one catalog build per configured control app (non-fatal)
//  5. Supervisor tree: HTTP API and the auto-sync loop as supervised services
//
// The server handles SIGINT and SIGTERM with graceful shutdown: in-flight
// requests drain within 10 seconds and the auto-sync loop stops cleanly.
//
// Example:
//
//	export TRICASTER_HOST=192.168.1.50
//	export TIMER_SYNC_TOKEN=your-control-app-token
//	./singularsync
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elliottw/singularsync/internal/api"
	"github.com/elliottw/singularsync/internal/config"
	"github.com/elliottw/singularsync/internal/logging"
	"github.com/elliottw/singularsync/internal/registry"
	"github.com/elliottw/singularsync/internal/singular"
	"github.com/elliottw/singularsync/internal/supervisor"
	"github.com/elliottw/singularsync/internal/supervisor/services"
	syncer "github.com/elliottw/singularsync/internal/sync"
	"github.com/elliottw/singularsync/internal/tricaster"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	api.Version = version

	logging.Info().
		Str("version", version).
		Bool("tricaster_enabled", cfg.TriCaster.Enabled).
		Str("tricaster_host", cfg.TriCaster.Host).
		Int("apps", len(cfg.Singular.Apps)).
		Bool("timer_sync_token_set", cfg.TimerSync.Token != "").
		Msg("Starting SingularSync")

	manager := config.NewManager(cfg, config.SavePath())

	singularClient := singular.NewClient(cfg.Singular.APIBase, cfg.Singular.Timeout)
	device := tricaster.NewBreakerClient(cfg.TriCaster)

	reg := registry.New(singularClient)
	fields := singular.NewFieldCache(singularClient)

	syncManager := syncer.NewManager(device, singularClient, fields, manager)
	poller := syncer.NewPoller(syncManager)

	// A saved timer-sync config may point at a different control app, so
	// drop cached field owners and poller state on every save.
	manager.OnTimerSyncSave(func(token string) {
		fields.Invalidate(token)
		poller.ResetState()
	})

	// Build the composition catalog up front. Failures are non-fatal; the
	// registry rebuilds on demand and via /singular/refresh.
	if len(cfg.Singular.Apps) > 0 {
		buildCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		total, err := reg.RebuildAll(buildCtx, cfg.Singular.Apps)
		cancel()
		if err != nil {
			logging.Warn().Err(err).Int("subcompositions", total).
				Msg("Initial registry build incomplete")
		} else {
			logging.Info().Int("subcompositions", total).Msg("Registry built")
		}
	}

	handlers := api.NewHandlers(manager, reg, singularClient, device, syncManager, poller)
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           api.NewRouter(handlers),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	tree.AddSyncService(services.NewAutoSyncService(poller, func() bool {
		return manager.Current().TimerSync.AutoSync.Enabled
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Stopped")
}

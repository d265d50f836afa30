// SingularSync - DDR Duration to Singular.Live Timer Synchronization
// Copyright 2026 Elliott W.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elliottw/singularsync

// Package api exposes the local HTTP control surface: composition actions,
// device passthroughs, sync triggers, and configuration endpoints.
package api

import (
	"context"
	"net/http"

	"github.com/elliottw/singularsync/internal/config"
	"github.com/elliottw/singularsync/internal/registry"
	"github.com/elliottw/singularsync/internal/singular"
	syncer "github.com/elliottw/singularsync/internal/sync"
	"github.com/elliottw/singularsync/internal/tricaster"
)

// Version is stamped at build time.
var Version = "dev"

// deviceClient is the slice of the TriCaster client the handlers use.
type deviceClient interface {
	Configured() bool
	Host() string
	State() string
	UpdateConfig(cfg config.TriCasterConfig)
	Version(ctx context.Context) (string, error)
	Dictionary(ctx context.Context, key string) ([]byte, error)
	Shortcut(ctx context.Context, name string, params map[string]string) error
	DDRInfo(ctx context.Context) (map[int]tricaster.SlotStatus, error)
	Tally(ctx context.Context) (*tricaster.TallyStatus, error)
}

// syncManager triggers duration syncs and timer commands.
type syncManager interface {
	SyncOne(ctx context.Context, slot int) (*syncer.Result, error)
	SyncAll(ctx context.Context) *syncer.AllResult
	SendTimerCommand(ctx context.Context, slot int, command string) error
	Restart(ctx context.Context, slot int) error
	RestartAll(ctx context.Context) map[int]string
}

// autoSyncLoop controls the background poller.
type autoSyncLoop interface {
	Start()
	Stop()
	Restart()
	Running() bool
	Status() syncer.PollerStatus
	ResetState()
}

// graphicsPatcher sends raw control PATCHes for the composition action
// endpoints.
type graphicsPatcher interface {
	Patch(ctx context.Context, token string, groups []singular.PatchGroup) error
}

// Handlers carries the wired dependencies for every endpoint.
type Handlers struct {
	cfg      *config.Manager
	registry *registry.Registry
	patcher  graphicsPatcher
	device   deviceClient
	sync     syncManager
	poller   autoSyncLoop
}

// NewHandlers wires the handler set.
func NewHandlers(
	cfg *config.Manager,
	reg *registry.Registry,
	patcher graphicsPatcher,
	device deviceClient,
	sync syncManager,
	poller autoSyncLoop,
) *Handlers {
	return &Handlers{
		cfg:      cfg,
		registry: reg,
		patcher:  patcher,
		device:   device,
		sync:     sync,
		poller:   poller,
	}
}

// Health reports liveness.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	respond(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": Version,
	})
}

// ConfigSummary returns a sanitized view of the running configuration.
// Tokens and passwords are reported as presence flags only.
func (h *Handlers) ConfigSummary(w http.ResponseWriter, _ *http.Request) {
	cfg := h.cfg.Current()

	apps := make(map[string]bool, len(cfg.Singular.Apps))
	for name, token := range cfg.Singular.Apps {
		apps[name] = token != ""
	}

	respond(w, http.StatusOK, map[string]any{
		"singular": map[string]any{
			"api_base": cfg.Singular.APIBase,
			"apps":     apps,
		},
		"tricaster": map[string]any{
			"enabled":      cfg.TriCaster.Enabled,
			"host":         cfg.TriCaster.Host,
			"password_set": cfg.TriCaster.Password != "",
		},
		"timer_sync": map[string]any{
			"token_set":  cfg.TimerSync.Token != "",
			"round_mode": cfg.TimerSync.RoundMode,
			"slots":      cfg.TimerSync.Slots,
			"auto_sync":  cfg.TimerSync.AutoSync,
		},
		"registry": map[string]any{
			"apps":            len(h.registry.Apps()),
			"subcompositions": h.registry.Len(),
		},
	})
}

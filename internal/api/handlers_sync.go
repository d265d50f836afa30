// SingularSync - DDR Duration to Singular.Live Timer Synchronization
// Copyright 2026 Elliott W.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elliottw/singularsync

package api

import (
	"net/http"
	"time"

	"github.com/elliottw/singularsync/internal/config"
)

// SyncSlot syncs one DDR slot's duration to its timer fields.
func (h *Handlers) SyncSlot(w http.ResponseWriter, r *http.Request) {
	slot, ok := h.slotParam(w, r)
	if !ok {
		return
	}

	result, err := h.sync.SyncOne(r.Context(), slot)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"ok": true, "result": result})
}

// SyncAll syncs every mapped slot. Always 200; per-slot failures are in
// the body.
func (h *Handlers) SyncAll(w http.ResponseWriter, r *http.Request) {
	all := h.sync.SyncAll(r.Context())
	respond(w, http.StatusOK, map[string]any{
		"ok":      all.OK(),
		"results": all.Results,
		"errors":  all.Errors,
	})
}

// TimerCommand builds a handler sending a fixed timer command.
func (h *Handlers) TimerCommand(command string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slot, ok := h.slotParam(w, r)
		if !ok {
			return
		}
		if err := h.sync.SendTimerCommand(r.Context(), slot, command); err != nil {
			respondError(w, err)
			return
		}
		respond(w, http.StatusOK, map[string]any{"ok": true, "slot": slot, "command": command})
	}
}

// TimerRestart pauses and resets one slot's timer.
func (h *Handlers) TimerRestart(w http.ResponseWriter, r *http.Request) {
	slot, ok := h.slotParam(w, r)
	if !ok {
		return
	}
	if err := h.sync.Restart(r.Context(), slot); err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"ok": true, "slot": slot, "action": "restart"})
}

// TimerRestartAll restarts every slot with a timer field.
func (h *Handlers) TimerRestartAll(w http.ResponseWriter, r *http.Request) {
	errs := h.sync.RestartAll(r.Context())
	body := map[string]any{"ok": len(errs) == 0}
	if len(errs) > 0 {
		body["errors"] = errs
	}
	respond(w, http.StatusOK, body)
}

// AutoSyncStatus reports the poller state.
func (h *Handlers) AutoSyncStatus(w http.ResponseWriter, _ *http.Request) {
	cfg := h.cfg.Current()
	status := h.poller.Status()
	respond(w, http.StatusOK, map[string]any{
		"enabled":       cfg.TimerSync.AutoSync.Enabled,
		"running":       status.Running,
		"interval":      status.Interval.Seconds(),
		"last_sync":     status.LastSync,
		"error":         status.LastError,
		"cached_values": status.LastValues,
	})
}

// SetAutoSync enables or disables the poller and optionally changes the
// interval (seconds, clamped to the allowed range).
func (h *Handlers) SetAutoSync(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled  bool `json:"enabled"`
		Interval *int `json:"interval"`
	}
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid body: "+err.Error())
		return
	}

	interval := time.Duration(0)
	if req.Interval != nil {
		interval = time.Duration(*req.Interval) * time.Second
	}
	updated, err := h.cfg.SetAutoSync(req.Enabled, interval)
	if err != nil {
		respondError(w, err)
		return
	}

	switch {
	case req.Enabled && !h.poller.Running():
		h.poller.Start()
	case req.Enabled && req.Interval != nil:
		h.poller.Restart()
	case !req.Enabled && h.poller.Running():
		h.poller.Stop()
	}

	respond(w, http.StatusOK, map[string]any{
		"ok":       true,
		"enabled":  updated.TimerSync.AutoSync.Enabled,
		"running":  h.poller.Running(),
		"interval": updated.TimerSync.AutoSync.Interval.Seconds(),
	})
}

// GetTimerSyncConfig returns the current slot mapping configuration.
func (h *Handlers) GetTimerSyncConfig(w http.ResponseWriter, _ *http.Request) {
	ts := h.cfg.Current().TimerSync
	respond(w, http.StatusOK, map[string]any{
		"token_set":  ts.Token != "",
		"round_mode": ts.RoundMode,
		"slots":      ts.Slots,
		"auto_sync":  ts.AutoSync,
	})
}

// SaveTimerSyncConfig replaces the timer sync settings. Saving fires the
// configured hooks, which invalidate the field-owner cache and reset the
// poller's remembered values.
func (h *Handlers) SaveTimerSyncConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token     string                       `json:"token"`
		RoundMode string                       `json:"round_mode"`
		Slots     map[string]config.SlotFields `json:"slots"`
	}
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid body: "+err.Error())
		return
	}

	current := h.cfg.Current().TimerSync
	ts := config.TimerSyncConfig{
		Token:     req.Token,
		RoundMode: req.RoundMode,
		Slots:     req.Slots,
		AutoSync:  current.AutoSync,
	}
	if _, err := h.cfg.SetTimerSync(ts); err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"ok": true})
}

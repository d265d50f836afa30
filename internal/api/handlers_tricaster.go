// SingularSync - DDR Duration to Singular.Live Timer Synchronization
// Copyright 2026 Elliott W.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elliottw/singularsync

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/elliottw/singularsync/internal/config"
)

// TriCasterTest verifies connectivity to the device.
func (h *Handlers) TriCasterTest(w http.ResponseWriter, r *http.Request) {
	if !h.device.Configured() {
		respond(w, http.StatusOK, map[string]any{"ok": false, "error": "no device configured"})
		return
	}
	version, err := h.device.Version(r.Context())
	if err != nil {
		respond(w, http.StatusOK, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"ok":       true,
		"host":     h.device.Host(),
		"breaker":  h.device.State(),
		"response": version,
	})
}

// TriCasterDDR returns the status of every DDR slot.
func (h *Handlers) TriCasterDDR(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.device.DDRInfo(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	ddrs := make(map[string]any, len(statuses))
	for slot, status := range statuses {
		ddrs["ddr"+strconv.Itoa(slot)] = status
	}
	respond(w, http.StatusOK, map[string]any{"ok": true, "ddrs": ddrs})
}

// TriCasterTally returns program/preview tally state.
func (h *Handlers) TriCasterTally(w http.ResponseWriter, r *http.Request) {
	tally, err := h.device.Tally(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"ok": true, "tally": tally})
}

// TriCasterDictionary returns one raw status document.
func (h *Handlers) TriCasterDictionary(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	data, err := h.device.Dictionary(r.Context(), key)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"raw_xml": string(data)})
}

// TriCasterShortcut executes a named device command. ?value= and ?index=
// become shortcut parameters.
func (h *Handlers) TriCasterShortcut(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	params := map[string]string{}
	if v := r.URL.Query().Get("value"); v != "" {
		params["value"] = v
	}
	if v := r.URL.Query().Get("index"); v != "" {
		if _, err := strconv.Atoi(v); err != nil {
			badRequest(w, "index must be an integer")
			return
		}
		params["index"] = v
	}

	if err := h.device.Shortcut(r.Context(), name, params); err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"ok": true, "command": name, "params": params})
}

// namedShortcut builds a handler that fires a fixed shortcut, for the
// convenience endpoints (record, streaming, take).
func (h *Handlers) namedShortcut(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.device.Shortcut(r.Context(), name, nil); err != nil {
			respondError(w, err)
			return
		}
		respond(w, http.StatusOK, map[string]any{"ok": true, "command": name})
	}
}

// TriCasterDDRTransport fires a ddrN_play / ddrN_stop shortcut.
func (h *Handlers) TriCasterDDRTransport(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slot, ok := h.slotParam(w, r)
		if !ok {
			return
		}
		name := "ddr" + strconv.Itoa(slot) + "_" + action
		if err := h.device.Shortcut(r.Context(), name, nil); err != nil {
			respondError(w, err)
			return
		}
		respond(w, http.StatusOK, map[string]any{"ok": true, "command": name})
	}
}

// TriCasterMacro runs a device macro by name.
func (h *Handlers) TriCasterMacro(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.device.Shortcut(r.Context(), "play_macro_byname", map[string]string{"value": name}); err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"ok": true, "macro": name})
}

// SaveTriCasterConfig updates the device connection settings.
func (h *Handlers) SaveTriCasterConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Host     string `json:"host"`
		User     string `json:"user"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid body: "+err.Error())
		return
	}

	updated, err := h.cfg.Update(func(c *config.Config) {
		c.TriCaster.Host = req.Host
		if req.User != "" {
			c.TriCaster.Username = req.User
		}
		c.TriCaster.Password = req.Password
	})
	if err != nil {
		respondError(w, err)
		return
	}

	h.device.UpdateConfig(updated.TriCaster)
	respond(w, http.StatusOK, map[string]any{"ok": true, "host": updated.TriCaster.Host})
}

// ToggleTriCasterModule enables or disables the device module.
func (h *Handlers) ToggleTriCasterModule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid body: "+err.Error())
		return
	}

	updated, err := h.cfg.Update(func(c *config.Config) {
		c.TriCaster.Enabled = req.Enabled
	})
	if err != nil {
		respondError(w, err)
		return
	}

	h.device.UpdateConfig(updated.TriCaster)
	respond(w, http.StatusOK, map[string]any{"ok": true, "enabled": updated.TriCaster.Enabled})
}

// slotParam parses the {slot} path parameter, 1..SlotCount.
func (h *Handlers) slotParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "slot")
	slot, err := strconv.Atoi(raw)
	if err != nil || slot < 1 {
		badRequest(w, "slot must be a positive integer")
		return 0, false
	}
	return slot, true
}

// SingularSync - DDR Duration to Singular.Live Timer Synchronization
// Copyright 2026 Elliott W.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elliottw/singularsync

package api

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/elliottw/singularsync/internal/config"
	"github.com/elliottw/singularsync/internal/singular"
)

// SingularList returns the full catalog keyed "app/slug".
func (h *Handlers) SingularList(w http.ResponseWriter, _ *http.Request) {
	catalog := make(map[string]any)
	for _, app := range h.registry.Apps() {
		for slug, entry := range h.registry.Entries(app) {
			fieldIDs := make([]string, 0, len(entry.Fields))
			for id := range entry.Fields {
				fieldIDs = append(fieldIDs, id)
			}
			sort.Strings(fieldIDs)
			catalog[app+"/"+slug] = map[string]any{
				"id":     entry.ID,
				"name":   entry.Name,
				"app":    app,
				"fields": fieldIDs,
			}
		}
	}
	respond(w, http.StatusOK, catalog)
}

// SingularRefresh rebuilds the registry from every configured app.
func (h *Handlers) SingularRefresh(w http.ResponseWriter, r *http.Request) {
	cfg := h.cfg.Current()
	total, err := h.registry.RebuildAll(r.Context(), cfg.Singular.Apps)
	if err != nil && total == 0 {
		respondError(w, err)
		return
	}

	body := map[string]any{
		"ok":    err == nil,
		"count": total,
		"apps":  len(cfg.Singular.Apps),
	}
	if err != nil {
		body["errors"] = err.Error()
	}
	respond(w, http.StatusOK, body)
}

// SingularPing verifies connectivity to every app, or one app via ?app=.
func (h *Handlers) SingularPing(w http.ResponseWriter, r *http.Request) {
	cfg := h.cfg.Current()
	if len(cfg.Singular.Apps) == 0 {
		badRequest(w, "no control apps configured")
		return
	}

	apps := cfg.Singular.Apps
	if name := r.URL.Query().Get("app"); name != "" {
		token, ok := apps[name]
		if !ok {
			respond(w, http.StatusNotFound, errorBody{Error: errorDetail{
				Code:    "NOT_FOUND",
				Message: fmt.Sprintf("app %q not configured", name),
			}})
			return
		}
		apps = map[string]string{name: token}
	}

	allOK := true
	results := make(map[string]any, len(apps))
	for name, token := range apps {
		if _, err := h.registry.RebuildApp(r.Context(), name, token); err != nil {
			allOK = false
			results[name] = map[string]any{"ok": false, "error": err.Error()}
			continue
		}
		results[name] = map[string]any{"ok": true, "subs": len(h.registry.Entries(name))}
	}
	respond(w, http.StatusOK, map[string]any{
		"ok":   allOK,
		"apps": results,
	})
}

// SingularControl forwards raw patch groups, for callers that already know
// composition ids. ?app= picks the token; default is the only app, or an
// error when several are configured.
func (h *Handlers) SingularControl(w http.ResponseWriter, r *http.Request) {
	var groups []singular.PatchGroup
	if err := decodeBody(r, &groups); err != nil {
		badRequest(w, "invalid patch body: "+err.Error())
		return
	}
	if len(groups) == 0 {
		badRequest(w, "empty patch body")
		return
	}

	cfg := h.cfg.Current()
	token := ""
	if name := r.URL.Query().Get("app"); name != "" {
		token = cfg.Singular.Apps[name]
		if token == "" {
			badRequest(w, fmt.Sprintf("app %q not configured", name))
			return
		}
	} else if len(cfg.Singular.Apps) == 1 {
		for _, t := range cfg.Singular.Apps {
			token = t
		}
	} else {
		badRequest(w, "multiple apps configured, specify ?app=")
		return
	}

	if err := h.patcher.Patch(r.Context(), token, groups); err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"ok": true, "groups": len(groups)})
}

// SingularApps lists configured app names.
func (h *Handlers) SingularApps(w http.ResponseWriter, _ *http.Request) {
	cfg := h.cfg.Current()
	names := make([]string, 0, len(cfg.Singular.Apps))
	for name := range cfg.Singular.Apps {
		names = append(names, name)
	}
	sort.Strings(names)
	respond(w, http.StatusOK, map[string]any{"apps": names})
}

// SingularFields lists every field of one app, for the mapping UI. Sorted
// by subcomposition then field title.
func (h *Handlers) SingularFields(w http.ResponseWriter, r *http.Request) {
	app := chi.URLParam(r, "app")

	entries := h.registry.Entries(app)
	if entries == nil {
		cfg := h.cfg.Current()
		token, ok := cfg.Singular.Apps[app]
		if !ok {
			respond(w, http.StatusNotFound, errorBody{Error: errorDetail{
				Code:    "NOT_FOUND",
				Message: fmt.Sprintf("app %q not configured", app),
			}})
			return
		}
		if _, err := h.registry.RebuildApp(r.Context(), app, token); err != nil {
			respondError(w, err)
			return
		}
		entries = h.registry.Entries(app)
	}

	type fieldInfo struct {
		ID             string `json:"id"`
		Name           string `json:"name"`
		Subcomposition string `json:"subcomposition"`
		Type           string `json:"type"`
	}
	var fields []fieldInfo
	for _, entry := range entries {
		for id, f := range entry.Fields {
			fields = append(fields, fieldInfo{
				ID:             id,
				Name:           f.DisplayTitle(),
				Subcomposition: entry.Name,
				Type:           f.Type,
			})
		}
	}
	sort.Slice(fields, func(i, j int) bool {
		if fields[i].Subcomposition != fields[j].Subcomposition {
			return fields[i].Subcomposition < fields[j].Subcomposition
		}
		return fields[i].Name < fields[j].Name
	})
	respond(w, http.StatusOK, map[string]any{"fields": fields, "count": len(fields)})
}

// AddApp registers a new control app and builds its registry entries.
func (h *Handlers) AddApp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Token string `json:"token"`
	}
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid body: "+err.Error())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Token = strings.TrimSpace(req.Token)
	if req.Name == "" || req.Token == "" {
		badRequest(w, "name and token are required")
		return
	}
	if _, exists := h.cfg.Current().Singular.Apps[req.Name]; exists {
		badRequest(w, fmt.Sprintf("app %q already exists", req.Name))
		return
	}

	if _, err := h.cfg.Update(func(c *config.Config) {
		c.Singular.Apps[req.Name] = req.Token
	}); err != nil {
		respondError(w, err)
		return
	}

	count, err := h.registry.RebuildApp(r.Context(), req.Name, req.Token)
	if err != nil {
		respond(w, http.StatusOK, map[string]any{
			"ok":      false,
			"message": "token saved, registry build failed: " + err.Error(),
		})
		return
	}
	respond(w, http.StatusOK, map[string]any{"ok": true, "subs": count})
}

// RemoveApp drops a control app and its registry entries.
func (h *Handlers) RemoveApp(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		badRequest(w, "name query parameter is required")
		return
	}
	if _, exists := h.cfg.Current().Singular.Apps[name]; !exists {
		respond(w, http.StatusNotFound, errorBody{Error: errorDetail{
			Code:    "NOT_FOUND",
			Message: fmt.Sprintf("app %q not found", name),
		}})
		return
	}

	if _, err := h.cfg.Update(func(c *config.Config) {
		delete(c.Singular.Apps, name)
	}); err != nil {
		respondError(w, err)
		return
	}
	h.registry.RemoveApp(name)
	respond(w, http.StatusOK, map[string]any{"ok": true})
}

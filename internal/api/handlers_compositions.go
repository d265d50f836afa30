// SingularSync - DDR Duration to Singular.Live Timer Synchronization
// Copyright 2026 Elliott W.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elliottw/singularsync

/*
handlers_compositions.go - per-composition action endpoints

These endpoints address a subcomposition by app and slug (or raw id) and
drive its state: animate in/out, set a field value, or control a
timecontrol widget. GET is accepted alongside POST so the URLs can be
triggered from stream deck buttons and browser bookmarks.
*/

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/elliottw/singularsync/internal/registry"
	"github.com/elliottw/singularsync/internal/singular"
)

// resolveEntry looks up the composition addressed by the request path.
func (h *Handlers) resolveEntry(r *http.Request) (*registry.Entry, error) {
	app := chi.URLParam(r, "app")
	key := chi.URLParam(r, "key")
	return h.registry.Resolve(key, app)
}

// CompositionResolve returns the catalog entry for one composition.
func (h *Handlers) CompositionResolve(w http.ResponseWriter, r *http.Request) {
	entry, err := h.resolveEntry(r)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, entry)
}

// CompositionIn animates a composition in.
func (h *Handlers) CompositionIn(w http.ResponseWriter, r *http.Request) {
	h.setState(w, r, "In")
}

// CompositionOut animates a composition out.
func (h *Handlers) CompositionOut(w http.ResponseWriter, r *http.Request) {
	h.setState(w, r, "Out")
}

func (h *Handlers) setState(w http.ResponseWriter, r *http.Request, state string) {
	entry, err := h.resolveEntry(r)
	if err != nil {
		respondError(w, err)
		return
	}

	groups := []singular.PatchGroup{{SubCompositionID: entry.ID, State: state}}
	if err := h.patcher.Patch(r.Context(), entry.Token, groups); err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"ok":    true,
		"id":    entry.ID,
		"app":   entry.App,
		"state": state,
	})
}

// CompositionSet sets one field value. ?field= and ?value= are required;
// ?asString=1 skips type coercion.
func (h *Handlers) CompositionSet(w http.ResponseWriter, r *http.Request) {
	entry, err := h.resolveEntry(r)
	if err != nil {
		respondError(w, err)
		return
	}

	query := r.URL.Query()
	fieldID := query.Get("field")
	if fieldID == "" {
		badRequest(w, "field query parameter is required")
		return
	}
	if !query.Has("value") {
		badRequest(w, "value query parameter is required")
		return
	}

	field, ok := entry.Fields[fieldID]
	if !ok {
		respond(w, http.StatusNotFound, errorBody{Error: errorDetail{
			Code:    "NOT_FOUND",
			Message: fmt.Sprintf("field not found on %s/%s: %s", entry.App, entry.Slug, fieldID),
		}})
		return
	}

	asString := query.Get("asString") == "1"
	value := registry.CoerceValue(field, query.Get("value"), asString)

	groups := []singular.PatchGroup{{
		SubCompositionID: entry.ID,
		Payload:          map[string]any{fieldID: value},
	}}
	if err := h.patcher.Patch(r.Context(), entry.Token, groups); err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"ok":    true,
		"id":    entry.ID,
		"app":   entry.App,
		"field": fieldID,
		"value": value,
	})
}

// CompositionTimecontrol drives a timecontrol field: ?field= names it,
// ?run=true|false starts or stops, ?value= sets the base value, ?utc=
// overrides the reference timestamp (milliseconds), and ?seconds= sets an
// optional countdown duration.
func (h *Handlers) CompositionTimecontrol(w http.ResponseWriter, r *http.Request) {
	entry, err := h.resolveEntry(r)
	if err != nil {
		respondError(w, err)
		return
	}

	query := r.URL.Query()
	fieldID := query.Get("field")
	if fieldID == "" {
		badRequest(w, "field query parameter is required")
		return
	}
	field, ok := entry.Fields[fieldID]
	if !ok {
		respond(w, http.StatusNotFound, errorBody{Error: errorDetail{
			Code:    "NOT_FOUND",
			Message: fmt.Sprintf("field not found on %s/%s: %s", entry.App, entry.Slug, fieldID),
		}})
		return
	}
	if !strings.EqualFold(field.Type, "timecontrol") {
		badRequest(w, fmt.Sprintf("field %q is not a timecontrol", fieldID))
		return
	}

	run := true
	if raw := query.Get("run"); raw != "" {
		run = raw == "true" || raw == "1"
	}

	value := 0
	if raw := query.Get("value"); raw != "" {
		value, err = strconv.Atoi(raw)
		if err != nil {
			badRequest(w, "value must be an integer")
			return
		}
	}

	utc := float64(time.Now().UnixMilli())
	if raw := query.Get("utc"); raw != "" {
		utc, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			badRequest(w, "utc must be a number of milliseconds")
			return
		}
	}

	payload := map[string]any{}
	if raw := query.Get("seconds"); raw != "" {
		if _, err := strconv.Atoi(raw); err != nil {
			badRequest(w, "seconds must be an integer")
			return
		}
		payload["Countdown Seconds"] = raw
	}
	payload[fieldID] = map[string]any{
		"UTC":       utc,
		"isRunning": run,
		"value":     value,
	}

	groups := []singular.PatchGroup{{SubCompositionID: entry.ID, Payload: payload}}
	if err := h.patcher.Patch(r.Context(), entry.Token, groups); err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"ok":    true,
		"id":    entry.ID,
		"app":   entry.App,
		"field": fieldID,
		"run":   run,
	})
}

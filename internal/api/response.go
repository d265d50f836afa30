// SingularSync - DDR Duration to Singular.Live Timer Synchronization
// Copyright 2026 Elliott W.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elliottw/singularsync

package api

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/elliottw/singularsync/internal/logging"
	"github.com/elliottw/singularsync/internal/registry"
	"github.com/elliottw/singularsync/internal/singular"
	syncer "github.com/elliottw/singularsync/internal/sync"
	"github.com/elliottw/singularsync/internal/tricaster"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// statusFor maps sentinel errors from the lower layers to HTTP statuses.
// Unknown errors are internal.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, syncer.ErrNotConfigured), errors.Is(err, tricaster.ErrNotConfigured):
		return http.StatusBadRequest, "NOT_CONFIGURED"
	case errors.Is(err, registry.ErrNotFound), errors.Is(err, tricaster.ErrSlotNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, tricaster.ErrUnavailable), errors.Is(err, singular.ErrUnavailable):
		return http.StatusServiceUnavailable, "REMOTE_UNAVAILABLE"
	case errors.Is(err, tricaster.ErrParse), errors.Is(err, singular.ErrParse):
		return http.StatusBadGateway, "REMOTE_MALFORMED"
	case errors.Is(err, syncer.ErrFieldNotResolved):
		return http.StatusConflict, "FIELD_NOT_RESOLVED"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

// respond writes v as JSON with the given status.
func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().Err(err).Msg("Failed to encode response")
	}
}

// respondError writes err using the sentinel-to-status mapping.
func respondError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	if status == http.StatusInternalServerError {
		logging.Error().Err(err).Msg("Request failed")
	}
	respond(w, status, errorBody{Error: errorDetail{Code: code, Message: err.Error()}})
}

// badRequest writes a 400 with a plain message.
func badRequest(w http.ResponseWriter, message string) {
	respond(w, http.StatusBadRequest, errorBody{Error: errorDetail{Code: "BAD_REQUEST", Message: message}})
}

// decodeBody decodes a JSON request body into v.
func decodeBody(r *http.Request, v any) error {
	defer func() { _ = r.Body.Close() }()
	return json.NewDecoder(r.Body).Decode(v)
}

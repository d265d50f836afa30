// SingularSync - DDR Duration to Singular.Live Timer Synchronization
// Copyright 2026 Elliott W.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elliottw/singularsync

package sync

import "errors"

// Sentinel errors for sync failures the API maps to distinct statuses.
var (
	// ErrNotConfigured means the sync cannot be attempted: no token, or
	// the slot has no minute/second field mapping.
	ErrNotConfigured = errors.New("timer sync not configured")

	// ErrFieldNotResolved means a configured field id exists in no
	// composition of the control app model. The field ids are named in
	// the wrapping error; nothing was patched.
	ErrFieldNotResolved = errors.New("field not present in control app model")
)

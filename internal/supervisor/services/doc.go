// SingularSync - DDR Duration to Singular.Live Timer Synchronization
// Copyright 2026 Elliott W.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elliottw/singularsync

// Package services adapts application components to suture.Service:
// the HTTP server's ListenAndServe pattern and the auto-sync poller's
// Start/Stop pattern both become context-aware Serve methods.
package services

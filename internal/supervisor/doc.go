// SingularSync - DDR Duration to Singular.Live Timer Synchronization
// Copyright 2026 Elliott W.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elliottw/singularsync

/*
Package supervisor provides process supervision using suture v4.

The tree is small:

	Root ("singularsync")
	├── APISupervisor ("api-layer")
	│   └── HTTPServerService
	└── SyncSupervisor ("sync-layer")
	    └── AutoSyncService

Crashed services are restarted with exponential backoff, and a failure in
the auto-sync loop never interrupts the HTTP surface. Lifecycle events
are logged through slog via the sutureslog adapter.

Services implement suture.Service:

	type Service interface {
	    Serve(ctx context.Context) error
	}

Return nil for a clean stop (no restart), an error to be restarted, and
return promptly when the context is canceled.
*/
package supervisor

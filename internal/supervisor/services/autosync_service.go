// SingularSync - DDR Duration to Singular.Live Timer Synchronization
// Copyright 2026 Elliott W.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elliottw/singularsync

package services

import (
	"context"
)

// AutoSyncLoop matches the poller lifecycle in internal/sync. Start and
// Stop are idempotent, so the wrapper does not track state itself.
type AutoSyncLoop interface {
	Start()
	Stop()
}

// AutoSyncService keeps the background duration poller under supervision.
// The loop may also be started and stopped at runtime through the API;
// enabled reports whether it should be running when Serve begins.
type AutoSyncService struct {
	loop    AutoSyncLoop
	enabled func() bool
}

// NewAutoSyncService wraps a poller. enabled is consulted once per Serve,
// typically bound to the auto-sync flag in the live configuration.
func NewAutoSyncService(loop AutoSyncLoop, enabled func() bool) *AutoSyncService {
	if enabled == nil {
		enabled = func() bool { return false }
	}
	return &AutoSyncService{loop: loop, enabled: enabled}
}

// Serve implements suture.Service. It starts the poller when configured
// to run, blocks until shutdown, then stops it.
func (s *AutoSyncService) Serve(ctx context.Context) error {
	if s.enabled() {
		s.loop.Start()
	}

	<-ctx.Done()

	s.loop.Stop()
	return ctx.Err()
}

// String identifies the service in supervisor logs.
func (s *AutoSyncService) String() string {
	return "auto-sync"
}

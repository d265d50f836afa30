// SingularSync - DDR Duration to Singular.Live Timer Synchronization
// Copyright 2026 Elliott W.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elliottw/singularsync

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

type mockLoop struct {
	startCount atomic.Int32
	stopCount  atomic.Int32
}

func (m *mockLoop) Start() { m.startCount.Add(1) }
func (m *mockLoop) Stop()  { m.stopCount.Add(1) }

func TestAutoSyncServiceImplementsSutureService(t *testing.T) {
	var _ suture.Service = (*AutoSyncService)(nil)
}

func TestAutoSyncServiceStartsWhenEnabled(t *testing.T) {
	loop := &mockLoop{}
	svc := NewAutoSyncService(loop, func() bool { return true })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}

	if loop.startCount.Load() != 1 {
		t.Errorf("Start calls: %d", loop.startCount.Load())
	}
	if loop.stopCount.Load() != 1 {
		t.Errorf("Stop calls: %d", loop.stopCount.Load())
	}
}

func TestAutoSyncServiceSkipsStartWhenDisabled(t *testing.T) {
	loop := &mockLoop{}
	svc := NewAutoSyncService(loop, func() bool { return false })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done

	if loop.startCount.Load() != 0 {
		t.Errorf("Start should not be called, got %d", loop.startCount.Load())
	}
	// Stop runs unconditionally; the poller ignores it when not running.
	if loop.stopCount.Load() != 1 {
		t.Errorf("Stop calls: %d", loop.stopCount.Load())
	}
}

func TestAutoSyncServiceNilEnabled(t *testing.T) {
	loop := &mockLoop{}
	svc := NewAutoSyncService(loop, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = svc.Serve(ctx)

	if loop.startCount.Load() != 0 {
		t.Errorf("nil enabled should default to disabled, got %d starts", loop.startCount.Load())
	}
}

func TestAutoSyncServiceString(t *testing.T) {
	svc := NewAutoSyncService(&mockLoop{}, nil)
	if svc.String() != "auto-sync" {
		t.Errorf("String: %q", svc.String())
	}
}

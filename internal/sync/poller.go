// SingularSync - DDR Duration to Singular.Live Timer Synchronization
// Copyright 2026 Elliott W.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elliottw/singularsync

/*
poller.go - auto-sync background loop

The poller reads every mapped DDR slot at a fixed interval and patches the
graphics timer only when the split minute/second pair changed since the
last successful patch. Failed patches do not advance the remembered value,
so the next pass retries instead of considering the slot up to date.
*/

package sync

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/elliottw/singularsync/internal/logging"
	"github.com/elliottw/singularsync/internal/metrics"
	"github.com/elliottw/singularsync/internal/timecode"
)

// slotValue is the comparable form of a synced duration.
type slotValue struct {
	Minutes int     `json:"minutes"`
	Seconds float64 `json:"seconds"`
}

// PollerStatus is a point-in-time snapshot of the auto-sync loop.
type PollerStatus struct {
	Running    bool              `json:"running"`
	Interval   time.Duration     `json:"interval"`
	LastSync   time.Time         `json:"last_sync"`
	LastError  string            `json:"last_error,omitempty"`
	LastValues map[int]slotValue `json:"last_values,omitempty"`
}

// Poller runs the auto-sync loop. Start and Stop are idempotent; the loop
// also exits on its own when auto-sync is disabled in the configuration.
type Poller struct {
	manager *Manager

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup

	stateMu    sync.RWMutex
	lastValues map[int]slotValue
	lastSync   time.Time
	lastError  string
}

// NewPoller creates a poller driving manager.
func NewPoller(manager *Manager) *Poller {
	return &Poller{
		manager:    manager,
		lastValues: make(map[int]slotValue),
	}
}

// Start launches the loop with the currently configured interval. Already
// running is a no-op. Interval changes take effect on the next Start.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}

	interval := p.manager.cfg.Current().TimerSync.AutoSync.Interval
	p.running = true
	p.stopChan = make(chan struct{})
	p.wg.Add(1)
	go p.run(p.stopChan, interval)

	logging.Info().Dur("interval", interval).Msg("Auto-sync started")
}

// Stop halts the loop and waits for the in-flight pass to finish. Not
// running is a no-op.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopChan)
	p.mu.Unlock()

	p.wg.Wait()
	logging.Info().Msg("Auto-sync stopped")
}

// Running reports whether the loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Restart is Stop then Start, used after interval changes.
func (p *Poller) Restart() {
	p.Stop()
	p.Start()
}

// Status returns a snapshot for the status endpoint.
func (p *Poller) Status() PollerStatus {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()

	values := make(map[int]slotValue, len(p.lastValues))
	for slot, v := range p.lastValues {
		values[slot] = v
	}
	return PollerStatus{
		Running:    p.Running(),
		Interval:   p.manager.cfg.Current().TimerSync.AutoSync.Interval,
		LastSync:   p.lastSync,
		LastError:  p.lastError,
		LastValues: values,
	}
}

// ResetState forgets remembered slot values, forcing the next pass to
// patch every slot. Used when the timer-sync configuration changes.
func (p *Poller) ResetState() {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	p.lastValues = make(map[int]slotValue)
}

func (p *Poller) run(stopChan chan struct{}, interval time.Duration) {
	defer p.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.pass(stopChan)
	for {
		select {
		case <-stopChan:
			return
		case <-ticker.C:
			if !p.manager.cfg.Current().TimerSync.AutoSync.Enabled {
				p.selfStop(stopChan)
				return
			}
			p.pass(stopChan)
		}
	}
}

// selfStop marks the poller stopped when the loop exits because the
// configuration disabled it. Closing stopChan here keeps a later Stop call
// from closing it twice.
func (p *Poller) selfStop(stopChan chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running && p.stopChan == stopChan {
		p.running = false
		close(p.stopChan)
	}
	logging.Info().Msg("Auto-sync disabled in configuration, loop exiting")
}

// pass runs one sync sweep over every mapped slot.
func (p *Poller) pass(stopChan chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	ts := p.manager.cfg.Current().TimerSync
	if ts.Token == "" {
		p.setError("no control app token configured")
		return
	}

	var passErr string
	for _, slot := range ts.SlotNumbers() {
		fields, _ := ts.SlotFor(slot)
		if !fields.Configured() {
			continue
		}
		if err := p.syncSlotIfChanged(ctx, slot); err != nil {
			logging.Debug().Err(err).Int("slot", slot).Msg("Auto-sync pass failed for slot")
			passErr = err.Error()
		}
	}
	p.setError(passErr)
}

// syncSlotIfChanged reads a slot's duration and patches only when the
// minute/second pair differs from the last successful patch.
func (p *Poller) syncSlotIfChanged(ctx context.Context, slot int) error {
	ts := p.manager.cfg.Current().TimerSync
	fields, _ := ts.SlotFor(slot)

	d, err := p.manager.device.SlotDuration(ctx, slot)
	if err != nil {
		metrics.SyncAttempts.WithLabelValues(slotLabel(slot), "failed").Inc()
		return err
	}

	minutes, seconds := timecode.Split(d.Seconds, d.FPS, ts.RoundToFrames())
	current := slotValue{Minutes: minutes, Seconds: timecode.Round2(seconds)}

	p.stateMu.RLock()
	previous, seen := p.lastValues[slot]
	p.stateMu.RUnlock()
	if seen && previous == current {
		metrics.SyncAttempts.WithLabelValues(slotLabel(slot), "skipped").Inc()
		return nil
	}

	values := map[string]any{
		fields.MinutesField: minutes,
		fields.SecondsField: seconds,
	}
	if err := p.manager.patchValues(ctx, ts.Token, values); err != nil {
		metrics.SyncAttempts.WithLabelValues(slotLabel(slot), "failed").Inc()
		return err
	}
	metrics.SyncAttempts.WithLabelValues(slotLabel(slot), "applied").Inc()

	now := time.Now()
	p.stateMu.Lock()
	p.lastValues[slot] = current
	p.lastSync = now
	p.stateMu.Unlock()
	metrics.AutoSyncLastSuccess.Set(float64(now.Unix()))

	logging.Info().
		Int("slot", slot).
		Int("minutes", minutes).
		Float64("seconds", seconds).
		Msg("Auto-sync patched timer fields")
	return nil
}

func (p *Poller) setError(msg string) {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	p.lastError = msg
}

func slotLabel(slot int) string {
	return strconv.Itoa(slot)
}

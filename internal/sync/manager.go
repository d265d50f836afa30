// SingularSync - DDR Duration to Singular.Live Timer Synchronization
// Copyright 2026 Elliott W.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elliottw/singularsync

/*
manager.go - DDR-to-timer sync orchestration

One sync pass for a slot reads the clip duration from the playback device,
splits it into the minute/second pair the graphics timer expects, resolves
which composition owns each configured field, and sends a single grouped
PATCH. A pass either patches every configured field or patches nothing;
unresolvable fields abort the pass with ErrFieldNotResolved rather than
silently shrinking the update.
*/

package sync

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/elliottw/singularsync/internal/config"
	"github.com/elliottw/singularsync/internal/logging"
	"github.com/elliottw/singularsync/internal/metrics"
	"github.com/elliottw/singularsync/internal/singular"
	"github.com/elliottw/singularsync/internal/timecode"
	"github.com/elliottw/singularsync/internal/tricaster"
)

// restartDelay separates the pause and reset commands of a restart. The
// timer widget processes commands in arrival order only when they land in
// separate control messages.
const restartDelay = 50 * time.Millisecond

// Timer commands the graphics timer widget understands.
const (
	TimerCommandStart = "start"
	TimerCommandPause = "pause"
	TimerCommandReset = "reset"
)

// DeviceClient reads clip durations from the playback device.
type DeviceClient interface {
	SlotDuration(ctx context.Context, slot int) (tricaster.SlotDuration, error)
}

// GraphicsPatcher sends grouped field updates to the graphics platform.
type GraphicsPatcher interface {
	Patch(ctx context.Context, token string, groups []singular.PatchGroup) error
}

// FieldResolver maps field ids to their owning composition ids.
type FieldResolver interface {
	Resolve(ctx context.Context, token string, fieldIDs []string) (map[string]string, error)
}

// ConfigSource provides the current configuration snapshot.
type ConfigSource interface {
	Current() *config.Config
}

// Result describes one completed duration sync.
type Result struct {
	Slot            int     `json:"slot"`
	DurationSeconds float64 `json:"duration_seconds"`
	Minutes         int     `json:"minutes"`
	Seconds         float64 `json:"seconds"`
	FPS             float64 `json:"fps,omitempty"`
	RoundMode       string  `json:"round_mode"`
}

// AllResult aggregates a SyncAll pass. Errors is keyed by slot number.
type AllResult struct {
	Results map[int]*Result `json:"results"`
	Errors  map[int]string  `json:"errors,omitempty"`
}

// OK reports whether every configured slot synced.
func (r *AllResult) OK() bool {
	return len(r.Errors) == 0
}

// Manager coordinates duration syncs and timer commands.
type Manager struct {
	device  DeviceClient
	patcher GraphicsPatcher
	fields  FieldResolver
	cfg     ConfigSource
}

// NewManager wires a sync manager.
func NewManager(device DeviceClient, patcher GraphicsPatcher, fields FieldResolver, cfg ConfigSource) *Manager {
	return &Manager{
		device:  device,
		patcher: patcher,
		fields:  fields,
		cfg:     cfg,
	}
}

// slotConfig pulls the token and field mapping for a slot, or
// ErrNotConfigured.
func (m *Manager) slotConfig(slot int) (token string, fields config.SlotFields, ts config.TimerSyncConfig, err error) {
	ts = m.cfg.Current().TimerSync
	if ts.Token == "" {
		return "", config.SlotFields{}, ts, fmt.Errorf("%w: no control app token", ErrNotConfigured)
	}
	fields, ok := ts.SlotFor(slot)
	if !ok {
		return "", config.SlotFields{}, ts, fmt.Errorf("%w: no field mapping for ddr%d", ErrNotConfigured, slot)
	}
	return ts.Token, fields, ts, nil
}

// SyncOne syncs a single DDR slot's clip duration to its timer fields.
func (m *Manager) SyncOne(ctx context.Context, slot int) (*Result, error) {
	result, err := m.syncSlot(ctx, slot)
	label := strconv.Itoa(slot)
	if err != nil {
		metrics.SyncAttempts.WithLabelValues(label, "failed").Inc()
		return nil, err
	}
	metrics.SyncAttempts.WithLabelValues(label, "applied").Inc()
	return result, nil
}

func (m *Manager) syncSlot(ctx context.Context, slot int) (*Result, error) {
	token, fields, ts, err := m.slotConfig(slot)
	if err != nil {
		return nil, err
	}
	if !fields.Configured() {
		return nil, fmt.Errorf("%w: ddr%d missing minutes or seconds field", ErrNotConfigured, slot)
	}

	d, err := m.device.SlotDuration(ctx, slot)
	if err != nil {
		return nil, err
	}

	minutes, seconds := timecode.Split(d.Seconds, d.FPS, ts.RoundToFrames())

	values := map[string]any{
		fields.MinutesField: minutes,
		fields.SecondsField: seconds,
	}
	if err := m.patchValues(ctx, token, values); err != nil {
		return nil, err
	}

	logging.Debug().
		Int("slot", slot).
		Float64("duration", d.Seconds).
		Int("minutes", minutes).
		Float64("seconds", seconds).
		Msg("Synced DDR duration to timer fields")

	return &Result{
		Slot:            slot,
		DurationSeconds: d.Seconds,
		Minutes:         minutes,
		Seconds:         seconds,
		FPS:             d.FPS,
		RoundMode:       ts.RoundMode,
	}, nil
}

// patchValues resolves field owners and sends one grouped PATCH. Any
// unresolved field aborts the whole patch.
func (m *Manager) patchValues(ctx context.Context, token string, values map[string]any) error {
	ids := make([]string, 0, len(values))
	for id := range values {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	mapping, err := m.fields.Resolve(ctx, token, ids)
	if err != nil {
		return err
	}

	var missing []string
	grouped := make(map[string]map[string]any)
	for _, id := range ids {
		owner, ok := mapping[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		if grouped[owner] == nil {
			grouped[owner] = make(map[string]any)
		}
		grouped[owner][id] = values[id]
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrFieldNotResolved, strings.Join(missing, ", "))
	}

	owners := make([]string, 0, len(grouped))
	for owner := range grouped {
		owners = append(owners, owner)
	}
	sort.Strings(owners)

	groups := make([]singular.PatchGroup, 0, len(owners))
	for _, owner := range owners {
		groups = append(groups, singular.PatchGroup{
			SubCompositionID: owner,
			Payload:          grouped[owner],
		})
	}
	return m.patcher.Patch(ctx, token, groups)
}

// SyncAll syncs every slot with a field mapping. Slots fail independently;
// one dead slot never blocks the rest.
func (m *Manager) SyncAll(ctx context.Context) *AllResult {
	all := &AllResult{
		Results: make(map[int]*Result),
		Errors:  make(map[int]string),
	}

	ts := m.cfg.Current().TimerSync
	for _, slot := range ts.SlotNumbers() {
		result, err := m.SyncOne(ctx, slot)
		if err != nil {
			all.Errors[slot] = err.Error()
			continue
		}
		all.Results[slot] = result
	}
	if len(all.Errors) == 0 {
		all.Errors = nil
	}
	return all
}

// SendTimerCommand sends a start/pause/reset command to a slot's timer
// widget.
func (m *Manager) SendTimerCommand(ctx context.Context, slot int, command string) error {
	switch command {
	case TimerCommandStart, TimerCommandPause, TimerCommandReset:
	default:
		return fmt.Errorf("unknown timer command %q", command)
	}

	token, fields, _, err := m.slotConfig(slot)
	if err != nil {
		return err
	}
	if fields.TimerField == "" {
		return fmt.Errorf("%w: ddr%d has no timer field", ErrNotConfigured, slot)
	}

	values := map[string]any{
		fields.TimerField: map[string]any{"command": command},
	}
	return m.patchValues(ctx, token, values)
}

// Restart returns a slot's timer to zero without starting it: pause, a
// short delay, then reset. The two commands go out separately; a crash
// between them leaves the timer paused at its current value.
func (m *Manager) Restart(ctx context.Context, slot int) error {
	if err := m.SendTimerCommand(ctx, slot, TimerCommandPause); err != nil {
		return err
	}
	select {
	case <-time.After(restartDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return m.SendTimerCommand(ctx, slot, TimerCommandReset)
}

// RestartAll restarts every slot that has a timer field configured. Slots
// fail independently.
func (m *Manager) RestartAll(ctx context.Context) map[int]string {
	errs := make(map[int]string)
	ts := m.cfg.Current().TimerSync
	for _, slot := range ts.SlotNumbers() {
		fields, _ := ts.SlotFor(slot)
		if fields.TimerField == "" {
			continue
		}
		if err := m.Restart(ctx, slot); err != nil {
			errs[slot] = err.Error()
		}
	}
	return errs
}

// SingularSync - DDR Duration to Singular.Live Timer Synchronization
// Copyright 2026 Elliott W.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elliottw/singularsync

package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	yamlparser "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/elliottw/singularsync/internal/logging"
)

// Manager owns the live configuration snapshot. Every sync operation reads
// through Current() so a saved change is observed by the next operation;
// nothing holds a private copy across calls.
//
// Saving timer-sync settings fires the registered hooks, which is how the
// field resolution cache learns it must invalidate.
type Manager struct {
	mu   sync.RWMutex
	cfg  *Config
	path string

	hookMu          sync.Mutex
	onTimerSyncSave []func(token string)
}

// NewManager creates a Manager around an already-loaded configuration.
// path may be empty, in which case saves are kept in memory only.
func NewManager(cfg *Config, path string) *Manager {
	return &Manager{cfg: cfg.Clone(), path: path}
}

// Current returns a copy of the live configuration. Callers may inspect and
// mutate the returned value freely; it never aliases the live snapshot.
func (m *Manager) Current() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.Clone()
}

// OnTimerSyncSave registers a hook fired after timer-sync configuration is
// saved. The hook receives the control app token the new field set targets.
func (m *Manager) OnTimerSyncSave(hook func(token string)) {
	m.hookMu.Lock()
	defer m.hookMu.Unlock()
	m.onTimerSyncSave = append(m.onTimerSyncSave, hook)
}

// Update applies mutate to a copy of the configuration, validates it, and
// swaps it in atomically. Readers see either the old or the new snapshot,
// never an intermediate state.
func (m *Manager) Update(mutate func(*Config)) (*Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.cfg.Clone()
	mutate(next)
	next.Normalize()
	if err := Validate(next); err != nil {
		return nil, err
	}

	m.cfg = next
	if err := m.persist(next); err != nil {
		return nil, err
	}
	return next.Clone(), nil
}

// SetTimerSync replaces the timer-sync section and fires invalidation
// hooks. A changed field set may resolve to different owning compositions,
// so cached resolutions for the token cannot be trusted afterwards.
func (m *Manager) SetTimerSync(ts TimerSyncConfig) (*Config, error) {
	cfg, err := m.Update(func(c *Config) {
		c.TimerSync.Token = ts.Token
		c.TimerSync.RoundMode = ts.RoundMode
		c.TimerSync.Slots = ts.Slots
	})
	if err != nil {
		return nil, err
	}

	m.fireTimerSyncHooks(cfg.TimerSync.Token)
	return cfg, nil
}

// SetAutoSync updates the auto-sync toggle and interval. An interval of 0
// leaves the current interval unchanged.
func (m *Manager) SetAutoSync(enabled bool, interval time.Duration) (*Config, error) {
	return m.Update(func(c *Config) {
		c.TimerSync.AutoSync.Enabled = enabled
		if interval > 0 {
			c.TimerSync.AutoSync.Interval = interval
		}
	})
}

func (m *Manager) fireTimerSyncHooks(token string) {
	m.hookMu.Lock()
	hooks := make([]func(string), len(m.onTimerSyncSave))
	copy(hooks, m.onTimerSyncSave)
	m.hookMu.Unlock()

	for _, hook := range hooks {
		hook(token)
	}
}

// persist writes the configuration to the backing file (must be called
// with mu held). A Manager with no path persists nothing.
func (m *Manager) persist(cfg *Config) error {
	if m.path == "" {
		return nil
	}

	k := koanf.New(".")
	if err := k.Load(structs.Provider(cfg, "koanf"), nil); err != nil {
		return fmt.Errorf("failed to stage config for save: %w", err)
	}
	out, err := k.Marshal(yamlparser.Parser())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(m.path, out, 0o600); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", m.path, err)
	}

	logging.Info().Str("path", m.path).Msg("Configuration saved")
	return nil
}

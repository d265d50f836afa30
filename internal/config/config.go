// SingularSync - DDR Duration to Singular.Live Timer Synchronization
// Copyright 2026 Elliott W.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elliottw/singularsync

// Package config provides layered configuration for SingularSync using
// Koanf v2: built-in defaults, then an optional YAML file, then environment
// variables. The Manager type holds the live snapshot that all operations
// re-read, so a saved change is visible to the next sync attempt without a
// restart.
package config

import (
	"sort"
	"strconv"
	"time"
)

// Round modes accepted by TimerSyncConfig.RoundMode.
const (
	RoundModeFrames = "frames"
	RoundModeNone   = "none"
)

// Auto-sync polling interval bounds. Values outside this range are clamped
// at load/save time rather than rejected.
const (
	MinAutoSyncInterval = 2 * time.Second
	MaxAutoSyncInterval = 10 * time.Second
)

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig    `koanf:"server" json:"server"`
	Logging   LoggingConfig   `koanf:"logging" json:"logging"`
	Singular  SingularConfig  `koanf:"singular" json:"singular"`
	TriCaster TriCasterConfig `koanf:"tricaster" json:"tricaster"`
	TimerSync TimerSyncConfig `koanf:"timer_sync" json:"timer_sync"`
}

// ServerConfig holds local HTTP API settings.
type ServerConfig struct {
	Host    string        `koanf:"host" json:"host"`
	Port    int           `koanf:"port" json:"port" validate:"min=1,max=65535"`
	Timeout time.Duration `koanf:"timeout" json:"timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level" json:"level" validate:"omitempty,oneof=trace debug info warn warning error disabled"`
	Format string `koanf:"format" json:"format" validate:"omitempty,oneof=json console"`
}

// SingularConfig holds Singular.Live API settings. Apps maps a
// human-readable application name to its control app token; the registry is
// built from every entry.
type SingularConfig struct {
	APIBase string            `koanf:"api_base" json:"api_base" validate:"required,url"`
	Apps    map[string]string `koanf:"apps" json:"apps"`
	Timeout time.Duration     `koanf:"timeout" json:"timeout"`
}

// TriCasterConfig holds playback-device connection settings.
type TriCasterConfig struct {
	Enabled  bool          `koanf:"enabled" json:"enabled"`
	Host     string        `koanf:"host" json:"host"`
	Username string        `koanf:"username" json:"username"`
	Password string        `koanf:"password" json:"password"`
	Timeout  time.Duration `koanf:"timeout" json:"timeout"`
}

// SlotFields associates a DDR slot with the Singular field ids driving its
// timer widget. A slot with an empty MinutesField or SecondsField cannot be
// duration-synced; TimerField alone still allows timer commands.
type SlotFields struct {
	MinutesField string `koanf:"minutes_field" json:"minutes_field"`
	SecondsField string `koanf:"seconds_field" json:"seconds_field"`
	TimerField   string `koanf:"timer_field" json:"timer_field"`
}

// Configured reports whether the slot has both fields required for
// duration sync.
func (s SlotFields) Configured() bool {
	return s.MinutesField != "" && s.SecondsField != ""
}

// AutoSyncConfig controls the background polling loop.
type AutoSyncConfig struct {
	Enabled  bool          `koanf:"enabled" json:"enabled"`
	Interval time.Duration `koanf:"interval" json:"interval"`
}

// TimerSyncConfig holds DDR-to-timer synchronization settings. Slots is
// keyed by the decimal slot number ("1".."4") to mirror the config file
// shape; use SlotFor / SlotNumbers for typed access.
type TimerSyncConfig struct {
	Token     string                `koanf:"token" json:"token"`
	RoundMode string                `koanf:"round_mode" json:"round_mode" validate:"omitempty,oneof=frames none"`
	Slots     map[string]SlotFields `koanf:"slots" json:"slots"`
	AutoSync  AutoSyncConfig        `koanf:"auto_sync" json:"auto_sync"`
}

// RoundToFrames reports whether durations should be rounded to frame
// boundaries before splitting.
func (t TimerSyncConfig) RoundToFrames() bool {
	return t.RoundMode != RoundModeNone
}

// SlotFor returns the field mapping for a slot number.
func (t TimerSyncConfig) SlotFor(slot int) (SlotFields, bool) {
	f, ok := t.Slots[strconv.Itoa(slot)]
	return f, ok
}

// SlotNumbers returns the configured slot numbers in ascending order.
// Keys that are not valid slot numbers are ignored.
func (t TimerSyncConfig) SlotNumbers() []int {
	nums := make([]int, 0, len(t.Slots))
	for k := range t.Slots {
		n, err := strconv.Atoi(k)
		if err != nil || n < 1 {
			continue
		}
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// Default returns a Config with all default values. These are applied
// first, then overridden by the config file and environment variables.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    3113,
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Singular: SingularConfig{
			APIBase: "https://app.singular.live/apiv2",
			Apps:    map[string]string{},
			Timeout: 10 * time.Second,
		},
		TriCaster: TriCasterConfig{
			Enabled:  false,
			Host:     "",
			Username: "admin",
			Password: "",
			Timeout:  6 * time.Second,
		},
		TimerSync: TimerSyncConfig{
			Token:     "",
			RoundMode: RoundModeFrames,
			Slots:     map[string]SlotFields{},
			AutoSync: AutoSyncConfig{
				Enabled:  false,
				Interval: 3 * time.Second,
			},
		},
	}
}

// Normalize clamps out-of-range values instead of rejecting them. Called
// after every load and before every save.
func (c *Config) Normalize() {
	if c.TimerSync.RoundMode == "" {
		c.TimerSync.RoundMode = RoundModeFrames
	}
	if c.TimerSync.AutoSync.Interval < MinAutoSyncInterval {
		c.TimerSync.AutoSync.Interval = MinAutoSyncInterval
	}
	if c.TimerSync.AutoSync.Interval > MaxAutoSyncInterval {
		c.TimerSync.AutoSync.Interval = MaxAutoSyncInterval
	}
	if c.Singular.Timeout <= 0 {
		c.Singular.Timeout = 10 * time.Second
	}
	if c.TriCaster.Timeout <= 0 {
		c.TriCaster.Timeout = 6 * time.Second
	}
	if c.Slots() == nil {
		c.TimerSync.Slots = map[string]SlotFields{}
	}
}

// Slots is a nil-safe accessor for the slot map.
func (c *Config) Slots() map[string]SlotFields {
	return c.TimerSync.Slots
}

// Clone returns a deep copy of the configuration. The Manager hands out
// clones so callers can never mutate the live snapshot.
func (c *Config) Clone() *Config {
	dup := *c

	dup.Singular.Apps = make(map[string]string, len(c.Singular.Apps))
	for k, v := range c.Singular.Apps {
		dup.Singular.Apps[k] = v
	}

	dup.TimerSync.Slots = make(map[string]SlotFields, len(c.TimerSync.Slots))
	for k, v := range c.TimerSync.Slots {
		dup.TimerSync.Slots[k] = v
	}

	return &dup
}

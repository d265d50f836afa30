// SingularSync - DDR Duration to Singular.Live Timer Synchronization
// Copyright 2026 Elliott W.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elliottw/singularsync

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where a config file is searched, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/singularsync/config.yaml",
	"/etc/singularsync/config.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "SINGULARSYNC_CONFIG"

// Load loads configuration with layered sources:
//  1. Defaults
//  2. Optional YAML config file
//  3. Environment variables (highest priority)
func Load() (*Config, error) {
	return loadFromPath(findConfigFile())
}

// LoadFile loads configuration from a specific file path plus defaults and
// environment variables. Used by the Manager so saves round-trip through
// the same file they were loaded from.
func LoadFile(path string) (*Config, error) {
	return loadFromPath(path)
}

func loadFromPath(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	cfg.Normalize()
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// SavePath returns the file runtime config changes are persisted to: the
// file the config was loaded from, or the first default path when no file
// exists yet.
func SavePath() string {
	if path := findConfigFile(); path != "" {
		return path
	}
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		return envPath
	}
	return DefaultConfigPaths[0]
}

// findConfigFile returns the first config file that exists, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransform maps recognized environment variables to config paths.
// Unrecognized variables are dropped (empty return) so unrelated process
// environment never leaks into the config tree.
func envTransform(key string) string {
	mappings := map[string]string{
		"SINGULARSYNC_HOST":  "server.host",
		"SINGULARSYNC_PORT":  "server.port",
		"LOG_LEVEL":          "logging.level",
		"LOG_FORMAT":         "logging.format",
		"SINGULAR_API_BASE":  "singular.api_base",
		"TRICASTER_ENABLED":  "tricaster.enabled",
		"TRICASTER_HOST":     "tricaster.host",
		"TRICASTER_USER":     "tricaster.username",
		"TRICASTER_PASS":     "tricaster.password",
		"TIMER_SYNC_TOKEN":   "timer_sync.token",
		"TIMER_SYNC_ROUND":   "timer_sync.round_mode",
		"AUTO_SYNC_ENABLED":  "timer_sync.auto_sync.enabled",
		"AUTO_SYNC_INTERVAL": "timer_sync.auto_sync.interval",
	}
	return mappings[strings.ToUpper(key)]
}

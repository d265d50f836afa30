// SingularSync - DDR Duration to Singular.Live Timer Synchronization
// Copyright 2026 Elliott W.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elliottw/singularsync

// Package metrics defines Prometheus instrumentation for SingularSync:
// sync attempts and outcomes, outbound patch traffic, registry size,
// field-resolution cache efficiency, and device circuit breaker state.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncAttempts counts duration-sync attempts per DDR slot and outcome.
	// outcome is one of: applied, failed, skipped.
	SyncAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "singularsync_sync_attempts_total",
			Help: "Total DDR-to-timer sync attempts by slot and outcome",
		},
		[]string{"slot", "outcome"},
	)

	// PatchRequests counts control PATCH requests sent to Singular.
	PatchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "singularsync_patch_requests_total",
			Help: "Total control PATCH requests to the Singular API by result",
		},
		[]string{"result"},
	)

	// RegistrySubcompositions reports the number of registered
	// subcompositions per control application.
	RegistrySubcompositions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "singularsync_registry_subcompositions",
			Help: "Subcompositions currently registered per control app",
		},
		[]string{"app"},
	)

	// FieldCacheHits counts field-resolution cache hits.
	FieldCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "singularsync_field_cache_hits_total",
			Help: "Field resolution cache hits",
		},
	)

	// FieldCacheMisses counts field-resolution cache misses (each miss costs
	// one full control-model fetch).
	FieldCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "singularsync_field_cache_misses_total",
			Help: "Field resolution cache misses",
		},
	)

	// DeviceBreakerState tracks the playback-device circuit breaker state:
	// 0=closed, 1=half-open, 2=open.
	DeviceBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "singularsync_device_breaker_state",
			Help: "Playback device circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// AutoSyncLastSuccess is the unix timestamp of the last successful
	// auto-sync patch, 0 until the first success.
	AutoSyncLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "singularsync_autosync_last_success_timestamp_seconds",
			Help: "Unix timestamp of the last successful auto-sync patch",
		},
	)
)

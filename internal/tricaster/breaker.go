// SingularSync - DDR Duration to Singular.Live Timer Synchronization
// Copyright 2026 Elliott W.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elliottw/singularsync

package tricaster

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/elliottw/singularsync/internal/config"
	"github.com/elliottw/singularsync/internal/logging"
	"github.com/elliottw/singularsync/internal/metrics"
)

// BreakerClient wraps Client with a circuit breaker so a dead or wedged
// device stops costing a 6 second timeout per poll. Only transport-level
// failures count against the breaker; a reachable device answering with
// documents we cannot use is not an outage.
type BreakerClient struct {
	client *Client
	cb     *gobreaker.CircuitBreaker[any]
}

// NewBreakerClient creates a device client with circuit breaker
// protection. The breaker opens after a 60% failure rate across at least
// 10 requests in a one minute window, and probes again after 30 seconds.
func NewBreakerClient(cfg config.TriCasterConfig) *BreakerClient {
	metrics.DeviceBreakerState.Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "tricaster",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},

		IsSuccessful: func(err error) bool {
			// Configuration, parse, and missing-slot errors say nothing
			// about device health.
			return err == nil || !errors.Is(err, ErrUnavailable)
		},

		OnStateChange: func(_ string, from, to gobreaker.State) {
			logging.Info().
				Str("from", stateString(from)).
				Str("to", stateString(to)).
				Msg("TriCaster circuit breaker state changed")
			metrics.DeviceBreakerState.Set(stateFloat(to))
		},
	})

	return &BreakerClient{
		client: NewClient(cfg),
		cb:     cb,
	}
}

func stateFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// execute runs one device call through the breaker, mapping rejection to
// ErrUnavailable so callers see a single outage error class.
func (bc *BreakerClient) execute(fn func() (any, error)) (any, error) {
	result, err := bc.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit breaker open", ErrUnavailable)
		}
		return nil, err
	}
	return result, nil
}

func castResult[T any](result any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

// UpdateConfig swaps the underlying connection settings. An open breaker
// stays open until its timeout elapses; the first half-open probe then
// runs against the new device.
func (bc *BreakerClient) UpdateConfig(cfg config.TriCasterConfig) {
	bc.client.UpdateConfig(cfg)
}

// Configured reports whether requests can be attempted at all.
func (bc *BreakerClient) Configured() bool {
	return bc.client.Configured()
}

// Host returns the configured device host.
func (bc *BreakerClient) Host() string {
	return bc.client.Host()
}

// State returns the breaker state name for status reporting.
func (bc *BreakerClient) State() string {
	return stateString(bc.cb.State())
}

// SlotDuration looks up a DDR slot's clip duration with breaker protection.
func (bc *BreakerClient) SlotDuration(ctx context.Context, slot int) (SlotDuration, error) {
	result, err := bc.execute(func() (any, error) {
		return bc.client.SlotDuration(ctx, slot)
	})
	return castResult[SlotDuration](result, err)
}

// Dictionary fetches one raw status document by key.
func (bc *BreakerClient) Dictionary(ctx context.Context, key string) ([]byte, error) {
	result, err := bc.execute(func() (any, error) {
		return bc.client.Dictionary(ctx, key)
	})
	return castResult[[]byte](result, err)
}

// Shortcut executes a named device command.
func (bc *BreakerClient) Shortcut(ctx context.Context, name string, params map[string]string) error {
	_, err := bc.execute(func() (any, error) {
		return nil, bc.client.Shortcut(ctx, name, params)
	})
	return err
}

// Version fetches the device's version string.
func (bc *BreakerClient) Version(ctx context.Context) (string, error) {
	result, err := bc.execute(func() (any, error) {
		return bc.client.Version(ctx)
	})
	return castResult[string](result, err)
}

// DDRInfo reports the status of every DDR slot.
func (bc *BreakerClient) DDRInfo(ctx context.Context) (map[int]SlotStatus, error) {
	result, err := bc.execute(func() (any, error) {
		return bc.client.DDRInfo(ctx)
	})
	return castResult[map[int]SlotStatus](result, err)
}

// Tally reports program/preview membership.
func (bc *BreakerClient) Tally(ctx context.Context) (*TallyStatus, error) {
	result, err := bc.execute(func() (any, error) {
		return bc.client.Tally(ctx)
	})
	return castResult[*TallyStatus](result, err)
}

// SingularSync - DDR Duration to Singular.Live Timer Synchronization
// Copyright 2026 Elliott W.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elliottw/singularsync

package singular

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/elliottw/singularsync/internal/metrics"
)

// ModelFetcher is the subset of Client the cache needs; tests substitute a
// fake to count fetches.
type ModelFetcher interface {
	FetchModel(ctx context.Context, token string) ([]Composition, error)
}

// FieldCache memoizes which composition owns each field id. The control
// PATCH endpoint requires values grouped by owning composition, but
// configuration addresses fields directly, so every patch needs this
// mapping and refetching the model per patch would be wasteful.
//
// The key is (token, field-id set): order-independent, so requesting the
// same fields in a different order hits the same entry. Entries never
// expire; the configuration layer invalidates explicitly when a saved
// field set changes.
type FieldCache struct {
	fetcher ModelFetcher

	mu      sync.RWMutex
	entries map[string]map[string]string
}

// NewFieldCache creates an empty cache backed by fetcher.
func NewFieldCache(fetcher ModelFetcher) *FieldCache {
	return &FieldCache{
		fetcher: fetcher,
		entries: make(map[string]map[string]string),
	}
}

// cacheKey builds the order-independent key for a token and field id set.
func cacheKey(token string, fieldIDs []string) string {
	ids := make([]string, len(fieldIDs))
	copy(ids, fieldIDs)
	sort.Strings(ids)
	return token + "\x00" + strings.Join(ids, ",")
}

// Resolve returns fieldID -> owning composition id for the requested
// fields. Fields that appear nowhere in the model are absent from the
// result; callers must treat absence as "cannot patch this field" and
// report it.
func (fc *FieldCache) Resolve(ctx context.Context, token string, fieldIDs []string) (map[string]string, error) {
	key := cacheKey(token, fieldIDs)

	fc.mu.RLock()
	cached, ok := fc.entries[key]
	fc.mu.RUnlock()
	if ok {
		metrics.FieldCacheHits.Inc()
		return copyMapping(cached), nil
	}

	metrics.FieldCacheMisses.Inc()
	comps, err := fc.fetcher.FetchModel(ctx, token)
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(fieldIDs))
	for _, id := range fieldIDs {
		wanted[id] = true
	}

	mapping := make(map[string]string)
	Walk(comps, func(c *Composition) {
		if c.ID == "" {
			return
		}
		for _, f := range c.Model {
			if !wanted[f.ID] {
				continue
			}
			if _, seen := mapping[f.ID]; seen {
				continue
			}
			mapping[f.ID] = c.ID
		}
	})

	fc.mu.Lock()
	fc.entries[key] = mapping
	fc.mu.Unlock()

	return copyMapping(mapping), nil
}

// Invalidate clears all entries for one token.
func (fc *FieldCache) Invalidate(token string) {
	prefix := token + "\x00"
	fc.mu.Lock()
	defer fc.mu.Unlock()
	for key := range fc.entries {
		if strings.HasPrefix(key, prefix) {
			delete(fc.entries, key)
		}
	}
}

// InvalidateAll clears the cache entirely.
func (fc *FieldCache) InvalidateAll() {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.entries = make(map[string]map[string]string)
}

// Len reports the number of cached entries. Status/observability only.
func (fc *FieldCache) Len() int {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	return len(fc.entries)
}

// copyMapping returns a copy so callers can never mutate a cached entry.
func copyMapping(m map[string]string) map[string]string {
	dup := make(map[string]string, len(m))
	for k, v := range m {
		dup[k] = v
	}
	return dup
}

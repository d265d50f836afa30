// SingularSync - DDR Duration to Singular.Live Timer Synchronization
// Copyright 2026 Elliott W.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elliottw/singularsync

/*
Package registry maintains the catalog of addressable subcompositions
discovered from the configured Singular control apps.

Every subcomposition gets a stable, human-typable slug derived from its
name; slug collisions within an app get "-2", "-3" suffixes in discovery
order, and the same composition id keeps its slug across rebuilds of the
same model. Lookup accepts either a slug or a raw composition id, with an
optional app hint that narrows the search.
*/
package registry

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/elliottw/singularsync/internal/logging"
	"github.com/elliottw/singularsync/internal/metrics"
	"github.com/elliottw/singularsync/internal/singular"
)

// ErrNotFound means no subcomposition matched the requested slug or id.
var ErrNotFound = errors.New("subcomposition not found")

// ModelFetcher is the subset of the Singular client the registry needs.
type ModelFetcher interface {
	FetchModel(ctx context.Context, token string) ([]singular.Composition, error)
}

// Entry is one registered subcomposition.
type Entry struct {
	ID     string                    `json:"id"`
	Name   string                    `json:"name"`
	Slug   string                    `json:"slug"`
	App    string                    `json:"app"`
	Token  string                    `json:"-"`
	Fields map[string]singular.Field `json:"fields"`
}

// entryRef locates an entry in the forward maps.
type entryRef struct {
	app  string
	slug string
}

// Registry is the subcomposition catalog. Rebuilds replace one app's
// entries atomically, so lookups during a rebuild see either the old or
// the new catalog, never a mix.
type Registry struct {
	fetcher ModelFetcher

	mu      sync.RWMutex
	apps    map[string]map[string]*Entry
	idIndex map[string]entryRef
}

// New creates an empty registry backed by fetcher.
func New(fetcher ModelFetcher) *Registry {
	return &Registry{
		fetcher: fetcher,
		apps:    make(map[string]map[string]*Entry),
		idIndex: make(map[string]entryRef),
	}
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases a name and collapses every non-alphanumeric run to a
// single hyphen. Names that reduce to nothing become "item".
func Slugify(name string) string {
	s := strings.ToLower(name)
	s = slugPattern.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "item"
	}
	return s
}

// RebuildApp refetches one app's model and replaces its entries. A fetch
// failure leaves the app's previous entries in place and returns the
// error; the caller decides whether that is fatal.
func (r *Registry) RebuildApp(ctx context.Context, app, token string) (int, error) {
	comps, err := r.fetcher.FetchModel(ctx, token)
	if err != nil {
		return 0, fmt.Errorf("rebuild app %s: %w", app, err)
	}

	entries := r.buildEntries(app, token, comps)

	r.mu.Lock()
	r.replaceAppLocked(app, entries)
	r.mu.Unlock()

	metrics.RegistrySubcompositions.WithLabelValues(app).Set(float64(len(entries)))
	logging.Info().Str("app", app).Int("subcompositions", len(entries)).Msg("Registry rebuilt")
	return len(entries), nil
}

// RebuildAll rebuilds every configured app. Apps is name -> token. One
// app's failure does not stop the others; all failures come back joined.
func (r *Registry) RebuildAll(ctx context.Context, apps map[string]string) (int, error) {
	total := 0
	var errs []error
	for app, token := range apps {
		count, err := r.RebuildApp(ctx, app, token)
		if err != nil {
			logging.Warn().Err(err).Str("app", app).Msg("Registry rebuild failed for app")
			errs = append(errs, err)
			continue
		}
		total += count
	}
	return total, errors.Join(errs...)
}

// buildEntries flattens a model into slugged entries. No locks held;
// the result is swapped in atomically afterwards.
func (r *Registry) buildEntries(app, token string, comps []singular.Composition) map[string]*Entry {
	entries := make(map[string]*Entry)
	for _, node := range singular.Flatten(comps) {
		slug := Slugify(node.Name)
		base := slug
		for i := 2; ; i++ {
			existing, taken := entries[slug]
			if !taken || existing.ID == node.ID {
				break
			}
			slug = fmt.Sprintf("%s-%d", base, i)
		}
		entries[slug] = &Entry{
			ID:     node.ID,
			Name:   node.Name,
			Slug:   slug,
			App:    app,
			Token:  token,
			Fields: node.Fields,
		}
	}
	return entries
}

func (r *Registry) replaceAppLocked(app string, entries map[string]*Entry) {
	for id, ref := range r.idIndex {
		if ref.app == app {
			delete(r.idIndex, id)
		}
	}
	r.apps[app] = entries
	for slug, e := range entries {
		r.idIndex[e.ID] = entryRef{app: app, slug: slug}
	}
}

// Resolve finds a subcomposition by slug or composition id. With an app
// hint the search is confined to that app; without one, slugs are checked
// across every app before falling back to the id index.
func (r *Registry) Resolve(slugOrID, appHint string) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if appHint != "" {
		if entries, ok := r.apps[appHint]; ok {
			if e, ok := entries[slugOrID]; ok {
				return e, nil
			}
		}
		if ref, ok := r.idIndex[slugOrID]; ok && ref.app == appHint {
			return r.apps[ref.app][ref.slug], nil
		}
		return nil, fmt.Errorf("%w: %s in app %s", ErrNotFound, slugOrID, appHint)
	}

	for _, entries := range r.apps {
		if e, ok := entries[slugOrID]; ok {
			return e, nil
		}
	}
	if ref, ok := r.idIndex[slugOrID]; ok {
		return r.apps[ref.app][ref.slug], nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, slugOrID)
}

// RemoveApp drops every entry for one app.
func (r *Registry) RemoveApp(app string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, ref := range r.idIndex {
		if ref.app == app {
			delete(r.idIndex, id)
		}
	}
	delete(r.apps, app)
	metrics.RegistrySubcompositions.WithLabelValues(app).Set(0)
}

// Apps lists the app names currently holding entries.
func (r *Registry) Apps() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.apps))
	for app := range r.apps {
		names = append(names, app)
	}
	return names
}

// Entries returns every entry for one app, keyed by slug. The map is a
// copy; entries themselves are shared and must not be mutated.
func (r *Registry) Entries(app string) map[string]*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries, ok := r.apps[app]
	if !ok {
		return nil
	}
	dup := make(map[string]*Entry, len(entries))
	for slug, e := range entries {
		dup[slug] = e
	}
	return dup
}

// Len reports the total number of registered subcompositions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := 0
	for _, entries := range r.apps {
		total += len(entries)
	}
	return total
}

// Package scrape defines the source adapter contract. Each source family
// knows how to fetch its own feed shape and normalize it into a Snapshot;
// everything downstream of the adapter is source-agnostic.
package scrape

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Ramsey-B/thistle/pkg/models"
)

// Adapter fetches and normalizes one source family's live feed
type Adapter interface {
	// Family returns the source family key, e.g. "ufcstats"
	Family() string
	// DefaultInterval is the family's poll cadence
	DefaultInterval() time.Duration
	// FetchSnapshot fetches the feed at url and normalizes it
	FetchSnapshot(ctx context.Context, url string) (*models.Snapshot, error)
}

// Registry holds the registered adapters keyed by family
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewRegistry creates an empty adapter registry
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds an adapter. Registering the same family twice is a wiring
// bug, so it errors instead of silently replacing.
func (r *Registry) Register(adapter Adapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	family := adapter.Family()
	if _, exists := r.adapters[family]; exists {
		return fmt.Errorf("adapter already registered for family %q", family)
	}
	r.adapters[family] = adapter
	return nil
}

// Get returns the adapter for a family
func (r *Registry) Get(family string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapter, ok := r.adapters[family]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for family %q", family)
	}
	return adapter, nil
}

// Families returns the registered family keys, sorted
func (r *Registry) Families() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	families := make([]string, 0, len(r.adapters))
	for family := range r.adapters {
		families = append(families, family)
	}
	sort.Strings(families)
	return families
}

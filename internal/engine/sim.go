package engine

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/roach88/firegraph/internal/catalog"
)

// Sim is the runtime host: it holds the shared Catalog and hands out
// independent, named Dags.
//
// Thread-safety: Sim methods are safe for concurrent use. The Dags it
// returns are not; each must be driven by one caller at a time.
type Sim struct {
	cat  *catalog.Catalog
	opts []Option

	mu   sync.RWMutex
	dags map[string]*Dag
}

// NewSim creates a host for cat. The options apply to every Dag it creates,
// before any per-Dag options.
func NewSim(cat *catalog.Catalog, opts ...Option) *Sim {
	return &Sim{
		cat:  cat,
		opts: opts,
		dags: make(map[string]*Dag),
	}
}

// Catalog returns the shared catalog.
func (s *Sim) Catalog() *catalog.Catalog { return s.cat }

// CreateDag creates and registers a new Dag under name.
// Returns an error if the name is taken.
func (s *Sim) CreateDag(name string, opts ...Option) (*Dag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.dags[name]; exists {
		return nil, fmt.Errorf("dag %q already exists", name)
	}
	all := make([]Option, 0, len(s.opts)+len(opts)+1)
	all = append(all, s.opts...)
	all = append(all, opts...)
	all = append(all, WithName(name))

	d := New(s.cat, all...)
	s.dags[name] = d
	slog.Debug("dag created", "dag", name, "catalog", s.cat.Name())
	return d, nil
}

// Dag returns the Dag registered under name.
func (s *Sim) Dag(name string) (*Dag, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.dags[name]
	return d, ok
}

// DeleteDag unregisters a Dag. Returns false if no Dag had that name.
func (s *Sim) DeleteDag(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.dags[name]; !ok {
		return false
	}
	delete(s.dags, name)
	return true
}

// Names returns the registered Dag names in sorted order.
func (s *Sim) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.dags))
}

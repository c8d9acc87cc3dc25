package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/plantag/pkg/plantag/internalerr"
)

// Parts is the raw, serializable content of a registry set.
type Parts struct {
	Codification []CodificationEntry
	Patterns     []PatternSpec
	Disciplines  []string
	Entities     []string
	Hierarchy    []DisciplineHierarchy
}

// Snapshot is an immutable, validated registry set. Nothing mutates a
// snapshot after Build returns it.
type Snapshot struct {
	Version  string
	LoadedAt time.Time

	Codification *CodificationRegistry
	Patterns     *PatternRegistry
	Disciplines  *CodeSet
	Entities     *CodeSet
	Hierarchy    *HierarchyRegistry
}

// Build compiles and validates parts into a snapshot stamped with a fresh
// ULID version.
func Build(p Parts) (*Snapshot, error) {
	patterns, err := NewPatternRegistry(p.Patterns)
	if err != nil {
		return nil, err
	}
	s := &Snapshot{
		Version:      ulid.Make().String(),
		LoadedAt:     time.Now().UTC(),
		Codification: NewCodificationRegistry(p.Codification),
		Patterns:     patterns,
		Disciplines:  NewCodeSet(p.Disciplines),
		Entities:     NewCodeSet(p.Entities),
		Hierarchy:    NewHierarchyRegistry(p.Hierarchy),
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the registries a run cannot do without.
func (s *Snapshot) Validate() error {
	if s == nil {
		return fmt.Errorf("registry snapshot is absent: %w", internalerr.ErrConfiguration)
	}
	var errs []error
	if s.Patterns.Len() == 0 {
		errs = append(errs, fmt.Errorf("token pattern registry is empty: %w", internalerr.ErrConfiguration))
	} else if len(s.Patterns.Base()) == 0 {
		errs = append(errs, fmt.Errorf("token pattern registry declares no base slot: %w", internalerr.ErrConfiguration))
	}
	if _, ok := s.Hierarchy.Default(); !ok {
		errs = append(errs, fmt.Errorf("hierarchy registry has no %s definition: %w", DefaultDiscipline, internalerr.ErrConfiguration))
	}
	if s.Codification == nil || s.Disciplines == nil || s.Entities == nil {
		errs = append(errs, fmt.Errorf("registry snapshot is incomplete: %w", internalerr.ErrConfiguration))
	}
	return errors.Join(errs...)
}

// Parts exports the snapshot content, e.g. for persisting it.
func (s *Snapshot) Parts() Parts {
	p := Parts{
		Codification: s.Codification.Entries(),
		Disciplines:  s.Disciplines.Codes(),
		Entities:     s.Entities.Codes(),
		Hierarchy:    s.Hierarchy.Definitions(),
	}
	if s.Patterns != nil {
		for _, pat := range s.Patterns.patterns {
			p.Patterns = append(p.Patterns, pat.PatternSpec)
		}
	}
	return p
}

// Source produces registry snapshots (files, a database, fixtures).
type Source interface {
	Load(ctx context.Context) (*Snapshot, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (*Snapshot, error)

// Load implements Source.
func (f SourceFunc) Load(ctx context.Context) (*Snapshot, error) { return f(ctx) }

// Holder publishes the current snapshot. Readers load it lock-free; reloads
// are serialized and swap a fully built snapshot in one step, so a batch
// holding the previous pointer keeps a consistent view.
type Holder struct {
	current atomic.Pointer[Snapshot]
	mu      sync.Mutex
}

// NewHolder creates a holder publishing s. s may be nil until the first
// Store or Reload.
func NewHolder(s *Snapshot) *Holder {
	h := &Holder{}
	if s != nil {
		h.current.Store(s)
	}
	return h
}

// Snapshot returns the current snapshot, or an error if none was published.
func (h *Holder) Snapshot() (*Snapshot, error) {
	s := h.current.Load()
	if s == nil {
		return nil, fmt.Errorf("no registry snapshot loaded: %w", internalerr.ErrConfiguration)
	}
	return s, nil
}

// Store validates and publishes s.
func (h *Holder) Store(s *Snapshot) error {
	if err := s.Validate(); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current.Store(s)
	return nil
}

// Reload loads a snapshot from src and publishes it. On failure the
// previous snapshot stays in place.
func (h *Holder) Reload(ctx context.Context, src Source) (*Snapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("reload registries: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("reload registries: %w", err)
	}
	h.current.Store(s)
	return s, nil
}

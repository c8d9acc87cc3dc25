package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cognicore/plantag/pkg/plantag/internalerr"
	"github.com/cognicore/plantag/pkg/plantag/registry"
	"github.com/cognicore/plantag/pkg/plantag/store"
)

// Store is an in-memory implementation of store.Store. The CLI uses it as
// the outcome sink when no database is configured.
type Store struct {
	mu       sync.RWMutex
	parts    registry.Parts
	imported bool
	outcomes map[string]store.Outcome
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{outcomes: make(map[string]store.Outcome)}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// ImportRegistry replaces the stored registry set.
func (s *Store) ImportRegistry(ctx context.Context, p registry.Parts) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.parts = copyParts(p)
	s.imported = true
	return nil
}

// LoadRegistry returns the stored registry set. Before any import it is
// empty, which registry.Build rejects.
func (s *Store) LoadRegistry(ctx context.Context) (registry.Parts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.imported {
		return registry.Parts{}, nil
	}
	return copyParts(s.parts), nil
}

// UpsertOutcome inserts or replaces the outcome of one item.
func (s *Store) UpsertOutcome(ctx context.Context, o store.Outcome) error {
	if o.ItemID == "" {
		return fmt.Errorf("upsert outcome: %w: empty item id", internalerr.ErrInvalidInput)
	}
	if o.ProcessedAt.IsZero() {
		o.ProcessedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes[o.ItemID] = copyOutcome(o)
	return nil
}

// GetOutcome returns the outcome of an item.
func (s *Store) GetOutcome(ctx context.Context, itemID string) (store.Outcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if o, ok := s.outcomes[itemID]; ok {
		return copyOutcome(o), nil
	}
	return store.Outcome{}, fmt.Errorf("outcome %s: %w", itemID, internalerr.ErrNotFound)
}

// OutcomesByBucket lists outcomes of a bucket, newest first.
func (s *Store) OutcomesByBucket(ctx context.Context, bucket string, limit int) ([]store.Outcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	var out []store.Outcome
	for _, o := range s.outcomes {
		if o.Bucket == bucket {
			out = append(out, copyOutcome(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ProcessedAt.Equal(out[j].ProcessedAt) {
			return out[i].ProcessedAt.After(out[j].ProcessedAt)
		}
		return out[i].ItemID < out[j].ItemID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CountByBucket returns the number of stored outcomes per bucket.
func (s *Store) CountByBucket(ctx context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, o := range s.outcomes {
		counts[o.Bucket]++
	}
	return counts, nil
}

func copyOutcome(o store.Outcome) store.Outcome {
	o.Chain = append([]string(nil), o.Chain...)
	return o
}

func copyParts(p registry.Parts) registry.Parts {
	out := registry.Parts{
		Codification: make([]registry.CodificationEntry, len(p.Codification)),
		Patterns:     append([]registry.PatternSpec(nil), p.Patterns...),
		Disciplines:  append([]string(nil), p.Disciplines...),
		Entities:     append([]string(nil), p.Entities...),
		Hierarchy:    make([]registry.DisciplineHierarchy, len(p.Hierarchy)),
	}
	for i, e := range p.Codification {
		e.Children = append([]string(nil), e.Children...)
		out.Codification[i] = e
	}
	for i, d := range p.Hierarchy {
		d.Roles = append([]string(nil), d.Roles...)
		specs := make(map[string]registry.RoleSpec, len(d.RoleSpecs))
		for role, rs := range d.RoleSpecs {
			specs[role] = rs
		}
		d.RoleSpecs = specs
		out.Hierarchy[i] = d
	}
	return out
}

var _ store.Store = (*Store)(nil)

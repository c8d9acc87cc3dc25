// Package store persists registry sets and classification outcomes.
package store

import (
	"context"
	"time"

	"github.com/cognicore/plantag/pkg/plantag/registry"
)

// Store is the catalogue interface. A registry import replaces the stored
// set as a whole.
type Store interface {
	Close() error

	// Registries
	ImportRegistry(ctx context.Context, p registry.Parts) error
	LoadRegistry(ctx context.Context) (registry.Parts, error)

	// Outcomes
	UpsertOutcome(ctx context.Context, o Outcome) error
	// GetOutcome returns internalerr.ErrNotFound for an unknown item.
	GetOutcome(ctx context.Context, itemID string) (Outcome, error)
	OutcomesByBucket(ctx context.Context, bucket string, limit int) ([]Outcome, error)
	CountByBucket(ctx context.Context) (map[string]int, error)
}

// Outcome is the stored summary of one classified item.
type Outcome struct {
	ItemID          string
	Tag             string
	Discipline      string
	Bucket          string
	Route           string
	QualityLabel    string
	Score           int
	Chain           []string // node tags, root first
	SnapshotVersion string
	ProcessedAt     time.Time
}

// Source loads snapshots from a store.
func Source(s Store) registry.Source {
	return registry.SourceFunc(func(ctx context.Context) (*registry.Snapshot, error) {
		p, err := s.LoadRegistry(ctx)
		if err != nil {
			return nil, err
		}
		return registry.Build(p)
	})
}

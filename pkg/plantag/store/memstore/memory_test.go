package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/plantag/pkg/plantag/internalerr"
	"github.com/cognicore/plantag/pkg/plantag/registry/registrytest"
	"github.com/cognicore/plantag/pkg/plantag/store"
)

func TestRegistryRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New()
	want := registrytest.Parts()
	require.NoError(t, s.ImportRegistry(ctx, want))

	got, err := s.LoadRegistry(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("registry mismatch (-want +got):\n%s", diff)
	}

	// The stored copy is independent of the caller's slices.
	got.Disciplines[0] = "XX"
	again, err := s.LoadRegistry(ctx)
	require.NoError(t, err)
	assert.Equal(t, want.Disciplines[0], again.Disciplines[0])

	snap, err := store.Source(s).Load(ctx)
	require.NoError(t, err)
	assert.True(t, snap.Disciplines.Contains("ME"))
}

func TestEmptyRegistryDoesNotBuild(t *testing.T) {
	_, err := store.Source(New()).Load(context.Background())
	assert.Error(t, err)
}

func TestOutcomes(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()

	require.NoError(t, s.UpsertOutcome(ctx, store.Outcome{ItemID: "a", Bucket: "FinalImport", Chain: []string{"AGL01_ME"}, ProcessedAt: now}))
	require.NoError(t, s.UpsertOutcome(ctx, store.Outcome{ItemID: "b", Bucket: "MdbLimbo", ProcessedAt: now}))
	require.NoError(t, s.UpsertOutcome(ctx, store.Outcome{ItemID: "c", Bucket: "MdbLimbo", ProcessedAt: now.Add(time.Second)}))

	got, err := s.GetOutcome(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"AGL01_ME"}, got.Chain)

	_, err = s.GetOutcome(ctx, "missing")
	assert.ErrorIs(t, err, internalerr.ErrNotFound)

	err = s.UpsertOutcome(ctx, store.Outcome{Bucket: "MdbLimbo"})
	assert.ErrorIs(t, err, internalerr.ErrInvalidInput)

	limbo, err := s.OutcomesByBucket(ctx, "MdbLimbo", 10)
	require.NoError(t, err)
	require.Len(t, limbo, 2)
	assert.Equal(t, "c", limbo[0].ItemID)

	limited, err := s.OutcomesByBucket(ctx, "MdbLimbo", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	require.NoError(t, s.UpsertOutcome(ctx, store.Outcome{ItemID: "b", Bucket: "DbLimbo"}))
	counts, err := s.CountByBucket(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"FinalImport": 1, "DbLimbo": 1, "MdbLimbo": 1}, counts)
}

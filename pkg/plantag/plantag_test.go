package plantag

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/cognicore/plantag/pkg/plantag/disposition"
	"github.com/cognicore/plantag/pkg/plantag/hierarchy"
	"github.com/cognicore/plantag/pkg/plantag/internalerr"
	"github.com/cognicore/plantag/pkg/plantag/registry"
	"github.com/cognicore/plantag/pkg/plantag/registry/registrytest"
	"github.com/cognicore/plantag/pkg/plantag/store/memstore"
	"github.com/cognicore/plantag/pkg/plantag/store/sqlite"
	"github.com/cognicore/plantag/pkg/plantag/token"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newEngine(t *testing.T) *Engine {
	t.Helper()
	opts := DefaultOptions()
	opts.Registry = registry.NewHolder(registrytest.Snapshot(t))
	opts.Logger = zaptest.NewLogger(t)
	e, err := New(opts)
	require.NoError(t, err)
	return e
}

func TestNewRequiresRegistry(t *testing.T) {
	_, err := New(DefaultOptions())
	assert.True(t, errors.Is(err, internalerr.ErrConfiguration))
}

func TestProcessFullyCodifiedItem(t *testing.T) {
	e := newEngine(t)
	o, err := e.Process(context.Background(), Item{ID: "a", Tag: "agl01-pu02-ps03-eq04 me sde"})
	require.NoError(t, err)

	assert.Equal(t, "AGL01_PU02_PS03_EQ04_ME_SDE", o.Tokens.NormalizedInput)
	assert.Equal(t, "ME", o.Discipline)
	assert.Equal(t, disposition.BucketFinalImport, o.Disposition.QualityBucket)
	assert.Equal(t, disposition.RouteProduction, o.Disposition.Route)
	assert.Equal(t, "High", o.Disposition.QualityLabel)

	require.Len(t, o.Chain, 3)
	leaf, ok := hierarchy.Leaf(o.Chain)
	require.True(t, ok)
	assert.Equal(t, "a", leaf.ID)
	assert.Equal(t, "AGL01-PU02-PS03-EQ04_ME_SDE", leaf.Tag)
	assert.NoError(t, hierarchy.VerifyChain(o.Chain))
}

func TestProcessEmptyTag(t *testing.T) {
	e := newEngine(t)
	o, err := e.Process(context.Background(), Item{ID: "item-7", Tag: "  "})
	require.Error(t, err)
	assert.True(t, errors.Is(err, internalerr.ErrHardInput))

	require.NotNil(t, o)
	assert.True(t, o.Failed())
	assert.Equal(t, "UNNAMED_item-7", o.Disposition.Identifier)
	assert.Equal(t, disposition.BucketMdbLimbo, o.Disposition.QualityBucket)
	assert.NotEmpty(t, o.Tokens.Errors)
	assert.Nil(t, o.Chain)
}

func TestProcessSectionException(t *testing.T) {
	e := newEngine(t)
	o, err := e.Process(context.Background(), Item{ID: "c", Tag: "AGL01_PU02_WLK_ME_SDE"})
	require.NoError(t, err)

	section, ok := o.Tokens.Tokens.Get(token.KeyPlantSection)
	require.True(t, ok)
	assert.True(t, section.IsFallback)
	assert.Equal(t, "WLK", section.Value)
	assert.True(t, o.Disposition.HasPlantSection)
}

func TestProcessComponentReplacesEquipment(t *testing.T) {
	e := newEngine(t)
	o, err := e.Process(context.Background(), Item{ID: "d", Tag: "AGL01_PU02_PS03_CP05_ME_SDE"})
	require.NoError(t, err)

	d := o.Disposition
	assert.True(t, d.EquipmentReplacedByComponent)
	assert.True(t, d.HasEquipment)
	assert.Equal(t, disposition.BucketFinalImport, d.QualityBucket)
	assert.Equal(t, "AGL01-PU02-PS03-CP05_ME_SDE", o.Chain[len(o.Chain)-1].Tag)
}

func TestProcessAssignsIDs(t *testing.T) {
	e := newEngine(t)
	a, err := e.Process(context.Background(), Item{Tag: "AGL01_PU02"})
	require.NoError(t, err)
	b, err := e.Process(context.Background(), Item{Tag: "AGL01_PU02"})
	require.NoError(t, err)

	assert.Len(t, a.ItemID, 26)
	assert.NotEqual(t, a.ItemID, b.ItemID)
	// Monotonic within the engine.
	assert.Less(t, a.ItemID, b.ItemID)
}

func TestItemDisciplineSelectsHierarchy(t *testing.T) {
	e := newEngine(t)
	o, err := e.Process(context.Background(), Item{ID: "s", Tag: "AGL01_PU02_PS03_EQ04_ME_SDE", Discipline: "ST"})
	require.NoError(t, err)
	assert.Equal(t, "ST", o.Discipline)
	assert.Equal(t, "AGL01-PU02_ME", o.Chain[1].Tag)
	assert.Contains(t, o.Disposition.Messages, "tag discipline ME differs from item discipline ST")
}

func TestProcessWithoutSnapshot(t *testing.T) {
	opts := DefaultOptions()
	opts.Registry = registry.NewHolder(nil)
	e, err := New(opts)
	require.NoError(t, err)

	_, err = e.Process(context.Background(), Item{Tag: "AGL01"})
	assert.True(t, errors.Is(err, internalerr.ErrConfiguration))
	_, err = e.ProcessBatch(context.Background(), []Item{{Tag: "AGL01"}}, 2)
	assert.True(t, errors.Is(err, internalerr.ErrConfiguration))
}

func TestProcessBatchKeepsOrder(t *testing.T) {
	e := newEngine(t)
	tags := []string{
		"AGL01_PU02_PS03_EQ04_ME_SDE",
		"",
		"AGL01_PU02_WLK_ME_SDE",
		"AGL01_PU02_PS03_CP05_ME_SDE",
		"XYZ01_PU02",
	}
	var items []Item
	for i := 0; i < 40; i++ {
		items = append(items, Item{ID: fmt.Sprintf("item-%02d", i), Tag: tags[i%len(tags)]})
	}

	out, err := e.ProcessBatch(context.Background(), items, 4)
	require.NoError(t, err)
	require.Len(t, out, len(items))

	versions := map[string]bool{}
	for i, o := range out {
		require.NotNil(t, o, i)
		assert.Equal(t, items[i].ID, o.ItemID)
		assert.Equal(t, items[i].Tag, o.Tag)
		assert.Equal(t, items[i].Tag == "", o.Failed(), items[i].ID)
		versions[o.SnapshotVersion] = true
	}
	assert.Len(t, versions, 1)
}

func TestProcessBatchSurvivesReload(t *testing.T) {
	e := newEngine(t)
	items := make([]Item, 100)
	for i := range items {
		items[i] = Item{ID: fmt.Sprint(i), Tag: "AGL01_PU02_PS03_EQ04_ME_SDE"}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			_, err := e.Reload(context.Background(), registry.SourceFunc(func(context.Context) (*registry.Snapshot, error) {
				return registry.Build(registrytest.Parts())
			}))
			assert.NoError(t, err)
		}
	}()

	out, err := e.ProcessBatch(context.Background(), items, 8)
	<-done
	require.NoError(t, err)

	version := out[0].SnapshotVersion
	for _, o := range out {
		assert.Equal(t, version, o.SnapshotVersion)
		assert.Equal(t, disposition.BucketFinalImport, o.Disposition.QualityBucket)
	}
}

func TestProcessBatchCancelled(t *testing.T) {
	e := newEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.ProcessBatch(ctx, []Item{{Tag: "AGL01"}, {Tag: "AGL01"}}, 2)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReloadFailureKeepsSnapshot(t *testing.T) {
	e := newEngine(t)
	before, err := e.Snapshot()
	require.NoError(t, err)

	broken := registrytest.Parts()
	broken.Hierarchy = nil
	_, err = e.Reload(context.Background(), registry.SourceFunc(func(context.Context) (*registry.Snapshot, error) {
		return registry.Build(broken)
	}))
	require.Error(t, err)

	after, err := e.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, before.Version, after.Version)
}

func TestTreeConsolidatesOutcomes(t *testing.T) {
	e := newEngine(t)
	out, err := e.ProcessBatch(context.Background(), []Item{
		{ID: "1", Tag: "AGL01_PU02_PS03_EQ04_ME_SDE"},
		{ID: "2", Tag: "AGL01_PU02_PS03_EQ05_ME_SDE"},
		{ID: "3", Tag: ""},
	}, 2)
	require.NoError(t, err)

	root := Tree(out)
	virtual, real := hierarchy.Count(root)
	assert.Equal(t, 2, virtual)
	assert.Equal(t, 2, real)
}

func TestOutcomesArePersisted(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()

	opts := DefaultOptions()
	opts.Registry = registry.NewHolder(registrytest.Snapshot(t))
	opts.Store = st
	e, err := New(opts)
	require.NoError(t, err)

	_, err = e.ProcessBatch(ctx, []Item{
		{ID: "a", Tag: "AGL01_PU02_PS03_EQ04_ME_SDE"},
		{ID: "b", Tag: ""},
	}, 2)
	require.NoError(t, err)

	got, err := st.GetOutcome(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "FinalImport", got.Bucket)
	assert.Equal(t, "High", got.QualityLabel)
	assert.Len(t, got.Chain, 3)
	snap, err := e.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, snap.Version, got.SnapshotVersion)

	counts, err := st.CountByBucket(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"FinalImport": 1, "MdbLimbo": 1}, counts)
}

func TestBatchIntoSQLiteWithManyWorkers(t *testing.T) {
	ctx := context.Background()
	st, err := sqlite.OpenSQLite(ctx, filepath.Join(t.TempDir(), "plantag.db"))
	require.NoError(t, err)
	defer st.Close()

	opts := DefaultOptions()
	opts.Registry = registry.NewHolder(registrytest.Snapshot(t))
	opts.Store = st
	e, err := New(opts)
	require.NoError(t, err)

	items := make([]Item, 500)
	for i := range items {
		items[i] = Item{ID: fmt.Sprintf("i%d", i), Tag: "AGL01_PU02_PS03_EQ04_ME_SDE"}
	}
	out, err := e.ProcessBatch(ctx, items, 8)
	require.NoError(t, err)
	require.Len(t, out, len(items))

	counts, err := st.CountByBucket(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"FinalImport": len(items)}, counts)
}

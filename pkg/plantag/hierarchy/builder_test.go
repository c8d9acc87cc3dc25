package hierarchy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/plantag/pkg/plantag/internalerr"
	"github.com/cognicore/plantag/pkg/plantag/registry"
	"github.com/cognicore/plantag/pkg/plantag/registry/registrytest"
	"github.com/cognicore/plantag/pkg/plantag/token"
	"github.com/cognicore/plantag/pkg/plantag/tokenize"
)

func hierarchyRegistry(t *testing.T) *registry.HierarchyRegistry {
	t.Helper()
	return registrytest.Snapshot(t).Hierarchy
}

func tokensOf(t *testing.T, raw string) *token.Set {
	t.Helper()
	res, err := tokenize.New(tokenize.DefaultOptions()).Run(registrytest.Snapshot(t), raw)
	require.NoError(t, err)
	return res.Tokens
}

func tags(chain []*Node) []string {
	out := make([]string, len(chain))
	for i, n := range chain {
		out[i] = n.Tag
	}
	return out
}

func roles(chain []*Node) []string {
	out := make([]string, len(chain))
	for i, n := range chain {
		out[i] = n.RoleLabel
	}
	return out
}

func TestBuildDefaultChain(t *testing.T) {
	b := NewBuilder(DefaultOptions())
	chain, err := b.Build(hierarchyRegistry(t), Item{
		ID:         "item-1",
		Discipline: "ME",
		Tokens:     tokensOf(t, "AGL01_PU02_PS03_EQ04_ME_SDE"),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"SITE", "ZONE", "EQUI"}, roles(chain))
	assert.Equal(t, []string{
		"AGL01_ME",
		"AGL01-PU02-PS03_ME",
		"AGL01-PU02-PS03-EQ04_ME_SDE",
	}, tags(chain))

	leaf, ok := Leaf(chain)
	require.True(t, ok)
	assert.Equal(t, "item-1", leaf.ID)
	assert.Equal(t, 2, leaf.Depth)
	assert.Equal(t, "AGL01-PU02-PS03_ME", leaf.ParentTag)
	assert.True(t, chain[0].IsVirtual)
	assert.Empty(t, chain[0].ParentTag)
	require.NoError(t, VerifyChain(chain))
}

func TestBuildMissingKeysRenderPlaceholders(t *testing.T) {
	b := NewBuilder(DefaultOptions())
	tokens := token.NewSet()
	tokens.Put(token.Token{Key: token.KeyPlant, Value: "AGL01", IsMatch: true})

	chain, err := b.Build(hierarchyRegistry(t), Item{ID: "x", Tokens: tokens})
	require.NoError(t, err)
	assert.Equal(t, "AGL01-MISSING_PLANTUNIT-MISSING_PLANTSECTION_ME", chain[1].Tag)
	// Absent suffixes fall back to the default codes.
	assert.Equal(t, "AGL01-MISSING_PLANTUNIT-MISSING_PLANTSECTION-MISSING_EQUIPMENT_ME_SDE", chain[2].Tag)
}

func TestBuildUsesReplacementForMissingBaseKey(t *testing.T) {
	b := NewBuilder(DefaultOptions())
	chain, err := b.Build(hierarchyRegistry(t), Item{
		ID:     "d",
		Tokens: tokensOf(t, "AGL01_PU02_PS03_CP05_ME_SDE"),
	})
	require.NoError(t, err)
	assert.Equal(t, "AGL01-PU02-PS03-CP05_ME_SDE", chain[2].Tag)
}

func TestBuildNormalizesStructureRole(t *testing.T) {
	b := NewBuilder(DefaultOptions())
	chain, err := b.Build(hierarchyRegistry(t), Item{
		ID:         "s",
		Discipline: "st",
		Tokens:     tokensOf(t, "AGL01_PU02_PS03_EQ04_ST_SDE"),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"SITE", "ZONE", "EQUI"}, roles(chain))
	// ST declares its own zone template.
	assert.Equal(t, "AGL01-PU02_ST", chain[1].Tag)
	// The leaf template comes from DEFAULT.
	assert.Equal(t, "AGL01-PU02-PS03-EQ04_ST_SDE", chain[2].Tag)
	require.NoError(t, VerifyChain(chain))
}

func TestBuildSynthesizesUnknownRole(t *testing.T) {
	b := NewBuilder(DefaultOptions())
	chain, err := b.Build(hierarchyRegistry(t), Item{
		ID:         "e",
		Discipline: "EL",
		Tokens:     tokensOf(t, "AGL01_PU02_PS03_EQ04_EL_SDE"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"SITE", "AREA", "EQUI"}, roles(chain))
	assert.Equal(t, "AGL01-PU02", chain[1].Tag)
}

func TestBuildFallsBackToDefaultDiscipline(t *testing.T) {
	b := NewBuilder(DefaultOptions())
	chain, err := b.Build(hierarchyRegistry(t), Item{
		ID:         "p",
		Discipline: "PI",
		Tokens:     tokensOf(t, "AGL01_PU02_PS03_EQ04_PI_SDE"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"SITE", "ZONE", "EQUI"}, roles(chain))
	assert.Equal(t, "AGL01_PI", chain[0].Tag)
}

func TestBuildWithoutDefaultIsConfigurationError(t *testing.T) {
	h := registry.NewHierarchyRegistry([]registry.DisciplineHierarchy{
		{Discipline: "EL", Roles: []string{"SITE", "EQUI"}},
	})
	b := NewBuilder(DefaultOptions())

	_, err := b.Build(h, Item{ID: "x", Discipline: "ME"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, internalerr.ErrConfiguration))

	// A defined discipline needs no fallback.
	chain, err := b.Build(h, Item{ID: "x", Discipline: "EL"})
	require.NoError(t, err)
	assert.Len(t, chain, 2)
}

func TestNormalizeRoles(t *testing.T) {
	cases := []struct {
		name string
		in   []string
		want []string
	}{
		{"plain", []string{"SITE", "ZONE", "EQUI"}, []string{"SITE", "ZONE", "EQUI"}},
		{"structure alias", []string{"SITE", "STRU"}, []string{"SITE", "EQUI"}},
		{"roles after leaf dropped", []string{"SITE", "EQUI", "SUB"}, []string{"SITE", "EQUI"}},
		{"leaf appended", []string{"SITE", "ZONE"}, []string{"SITE", "ZONE", "EQUI"}},
		{"duplicates", []string{"SITE", "SITE", "STRU", "EQUI"}, []string{"SITE", "EQUI"}},
		{"empty", nil, []string{"EQUI"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := normalizeRoles(tc.in)
			labels := make([]string, len(got))
			for i, r := range got {
				labels[i] = r.label
			}
			assert.Equal(t, tc.want, labels)
		})
	}
}

func TestChainShapeHoldsForManyTags(t *testing.T) {
	b := NewBuilder(DefaultOptions())
	h := hierarchyRegistry(t)
	inputs := []string{
		"AGL01_PU02_PS03_EQ04_ME_SDE",
		"AGL01_PU02_WLK_ME_SDE",
		"PU02_PS03",
		"XYZ01_ZZ_ZZ_ZZ",
	}
	for _, raw := range inputs {
		for _, disc := range []string{"", "ME", "ST", "EL", "??"} {
			chain, err := b.Build(h, Item{ID: "id", Discipline: disc, Tokens: tokensOf(t, raw)})
			require.NoError(t, err)
			require.NoError(t, VerifyChain(chain), "%q/%q", raw, disc)
			last := chain[len(chain)-1]
			assert.Equal(t, RoleLeaf, last.RoleLabel)
			assert.False(t, last.IsVirtual)
		}
	}

	chain, err := b.Build(h, Item{ID: "id"})
	require.NoError(t, err)
	require.NoError(t, VerifyChain(chain))
}

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/plantag/pkg/plantag/internalerr"
	"github.com/cognicore/plantag/pkg/plantag/registry"
	"github.com/cognicore/plantag/pkg/plantag/registry/registrytest"
	"github.com/cognicore/plantag/pkg/plantag/token"
)

const sampleDir = "../../../configs/registry"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSampleRegistryMatchesFixture(t *testing.T) {
	l, err := DirLoader(sampleDir)
	require.NoError(t, err)

	got, err := l.Parts()
	require.NoError(t, err)
	want := registrytest.Parts()

	if diff := cmp.Diff(want.Patterns, got.Patterns); diff != "" {
		t.Errorf("patterns mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want.Codification, got.Codification); diff != "" {
		t.Errorf("codification mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, want.Disciplines, got.Disciplines)
	assert.Equal(t, want.Entities, got.Entities)

	snap, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"DEFAULT", "EL", "ST"}, snap.Hierarchy.Disciplines())
}

func TestLoadCodificationTOML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "codification.toml", `
[[entries]]
code = "agl"
type = "plant"

[[entries]]
code = "PU0"
type = "PlantUnit"
parent = "AGL"
`)
	entries, err := LoadCodification(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, registry.CodificationPlantUnit, entries[1].Type)
	assert.Equal(t, "AGL", entries[1].ParentCode)

	reg := registry.NewCodificationRegistry(entries)
	assert.True(t, reg.IsChildOf("PU0", "AGL"))
}

func TestLoadPatternsTOML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "patterns.toml", `
[[patterns]]
key = "Plant"
kind = "base"
pattern = '^[A-Z]{3}\d{2}$'
position = 0

[[patterns]]
key = "Walkway"
kind = "suffix"
pattern = '^WLK$'
position = 2
exception = true
`)
	specs, err := LoadPatterns(path)
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, token.KindBase, specs[0].Kind)
	assert.True(t, specs[1].Exception)
}

func TestLoadHierarchyYAML(t *testing.T) {
	h, err := LoadHierarchy(filepath.Join(sampleDir, "hierarchy.yaml"))
	require.NoError(t, err)
	require.Len(t, h, 3)
	assert.Equal(t, []string{"SITE", "ZONE", "STRU"}, h[1].Roles)
	assert.Equal(t, []string{token.KeyPlant, token.KeyPlantUnit}, h[1].RoleSpecs["ZONE"].BaseKeys)
}

func TestDecodeErrors(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]struct {
		name    string
		content string
		load    func(string) error
	}{
		"unknown field": {"codes.yaml", "disciplines: [ME]\ncolours: [red]\n", func(p string) error {
			_, _, err := LoadCodes(p)
			return err
		}},
		"bad toml": {"codes.toml", "disciplines = [", func(p string) error {
			_, _, err := LoadCodes(p)
			return err
		}},
		"unknown extension": {"codes.json", "{}", func(p string) error {
			_, _, err := LoadCodes(p)
			return err
		}},
		"bad kind": {"patterns.yaml", "patterns:\n  - {key: Plant, kind: prefix, position: 0}\n", func(p string) error {
			_, err := LoadPatterns(p)
			return err
		}},
		"bad type": {"codification.yaml", "entries:\n  - {code: AGL, type: galaxy}\n", func(p string) error {
			_, err := LoadCodification(p)
			return err
		}},
		"empty code": {"codification.yaml", "entries:\n  - {code: '', type: plant}\n", func(p string) error {
			_, err := LoadCodification(p)
			return err
		}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, dir, tc.name, tc.content)
			err := tc.load(path)
			require.Error(t, err)
			assert.True(t, errors.Is(err, internalerr.ErrConfiguration), err.Error())
		})
	}
}

func TestEmptyYAMLIsEmptyRegistry(t *testing.T) {
	path := writeFile(t, t.TempDir(), "codes.yaml", "\n")
	disciplines, entities, err := LoadCodes(path)
	require.NoError(t, err)
	assert.Empty(t, disciplines)
	assert.Empty(t, entities)
}

func TestMissingFile(t *testing.T) {
	_, err := LoadHierarchy(filepath.Join(t.TempDir(), "hierarchy.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, internalerr.ErrConfiguration))
}

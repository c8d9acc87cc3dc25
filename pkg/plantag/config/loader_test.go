package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/plantag/pkg/plantag/internalerr"
)

func copySample(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"codification.yaml", "patterns.yaml", "codes.yaml", "hierarchy.yaml"} {
		data, err := os.ReadFile(filepath.Join(sampleDir, name))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
	}
	return dir
}

func TestDirLoaderFindsFiles(t *testing.T) {
	dir := copySample(t)
	require.NoError(t, os.Rename(filepath.Join(dir, "codes.yaml"), filepath.Join(dir, "codes.yml")))

	l, err := DirLoader(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "codes.yml"), l.CodesPath)
	assert.Len(t, l.Paths(), 4)
}

func TestDirLoaderMissingDir(t *testing.T) {
	_, err := DirLoader(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, internalerr.ErrConfiguration))
}

func TestLoaderWithoutHierarchyFailsValidation(t *testing.T) {
	dir := copySample(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "hierarchy.yaml")))

	l, err := DirLoader(dir)
	require.NoError(t, err)
	assert.Empty(t, l.HierarchyPath)

	_, err = l.Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, internalerr.ErrConfiguration))
}

func TestLoaderAllEmpty(t *testing.T) {
	var l Loader
	p, err := l.Parts()
	require.NoError(t, err)
	assert.Empty(t, p.Patterns)
	assert.Empty(t, l.Paths())

	_, err = l.Load(context.Background())
	assert.True(t, errors.Is(err, internalerr.ErrConfiguration))
}

func TestLoaderHonorsCancelledContext(t *testing.T) {
	l, err := DirLoader(sampleDir)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

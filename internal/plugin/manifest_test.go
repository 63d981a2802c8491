package plugin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePlugin(t *testing.T, root, dir, manifest, script string) string {
	t.Helper()
	path := filepath.Join(root, dir)
	require.NoError(t, os.MkdirAll(path, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(path, ManifestFile), []byte(manifest), 0o644))
	if script != "" {
		require.NoError(t, os.WriteFile(filepath.Join(path, DefaultMain), []byte(script), 0o644))
	}
	return path
}

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest([]byte(`
name = "pull-quote"
version = "1.2.0"
description = "Pull quotes"
`), "/plugins/pull-quote")
	require.NoError(t, err)
	assert.Equal(t, "pull-quote", m.Name)
	assert.Equal(t, DefaultMain, m.Main)
	assert.Equal(t, filepath.Join("/plugins/pull-quote", "init.lua"), m.EntryPath())
}

func TestParseManifestRejects(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"not toml", `name = `},
		{"no name", `version = "1.0.0"`},
		{"bad name", `name = "Pull Quote"`},
		{"bad version", "name = \"x\"\nversion = \"one\""},
		{"not lua", "name = \"x\"\nmain = \"init.js\""},
		{"escapes dir", "name = \"x\"\nmain = \"../other/init.lua\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest([]byte(tt.in), "/p")
			assert.ErrorIs(t, err, ErrInvalidManifest)
		})
	}
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "b", `name = "beta"`, "")
	writePlugin(t, root, "a", `name = "alpha"`, "")
	writePlugin(t, root, "broken", `name = "Broken!"`, "")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README"), []byte("x"), 0o644))

	found, err := Discover(root)
	assert.ErrorIs(t, err, ErrInvalidManifest)
	require.Len(t, found, 2)
	assert.Equal(t, "alpha", found[0].Name)
	assert.Equal(t, "beta", found[1].Name)
	assert.Equal(t, filepath.Join(root, "a"), found[0].Dir())

	none, err := Discover(filepath.Join(root, "missing"))
	assert.NoError(t, err)
	assert.Empty(t, none)
}

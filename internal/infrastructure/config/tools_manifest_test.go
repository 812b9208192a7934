package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tools.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadToolsManifest(t *testing.T) {
	path := writeManifest(t, `
tools:
  - name: summarize
    description: Summarize a block of text
    url: http://localhost:9001/summarize
  - name: translate
    url: http://localhost:9002/translate
`)

	manifest, err := LoadToolsManifest(path)
	require.NoError(t, err)
	require.Len(t, manifest.Tools, 2)
	assert.Equal(t, "summarize", manifest.Tools[0].Name)
	assert.Equal(t, "http://localhost:9001/summarize", manifest.Tools[0].URL)
	assert.Empty(t, manifest.Tools[1].Description)
}

func TestLoadToolsManifest_EmptyPath(t *testing.T) {
	manifest, err := LoadToolsManifest("")
	require.NoError(t, err)
	assert.Empty(t, manifest.Tools)
}

func TestLoadToolsManifest_MissingFile(t *testing.T) {
	_, err := LoadToolsManifest("/no/such/manifest.yaml")
	require.Error(t, err)
}

func TestLoadToolsManifest_Invalid(t *testing.T) {
	t.Run("missing name", func(t *testing.T) {
		path := writeManifest(t, `
tools:
  - url: http://localhost:9001/x
`)
		_, err := LoadToolsManifest(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "name is required")
	})

	t.Run("missing url", func(t *testing.T) {
		path := writeManifest(t, `
tools:
  - name: broken
`)
		_, err := LoadToolsManifest(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "url is required")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeManifest(t, "tools: [not closed")
		_, err := LoadToolsManifest(path)
		require.Error(t, err)
	})
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Explicit Missing File Is An Error", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})

	t.Run("Explicit File Loaded", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "mdpub.yaml")
		content := `
highlighter: prism.js
math_engine: katex
diagram_timeout: 30
plugin_dirs:
  - /opt/mdpub/plugins
asset_paths:
  images/a.png: /tmp/a.png
page:
  size: Letter
  margins:
    top: 10
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "prism.js", cfg.Highlighter)
		assert.Equal(t, "katex", cfg.MathEngine)
		assert.Equal(t, 30*time.Second, cfg.DiagramTimeoutDuration())
		assert.Equal(t, []string{"/opt/mdpub/plugins"}, cfg.PluginDirs)
		assert.Equal(t, "/tmp/a.png", cfg.AssetPaths["images/a.png"])
		assert.Equal(t, "Letter", cfg.Page.Size)
		assert.Equal(t, 10, cfg.Page.Margins.Top)
	})

	t.Run("Defaults Fill Missing Fields", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "mdpub.yaml")
		require.NoError(t, os.WriteFile(path, []byte("highlighter: chroma\n"), 0644))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "chroma", cfg.Highlighter)
		assert.Equal(t, "mathjax", cfg.MathEngine)
		assert.Equal(t, 15*time.Second, cfg.DiagramTimeoutDuration())
		assert.Equal(t, "A4", cfg.Page.Size)
	})
}

func TestDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.Equal(t, "highlight.js", cfg.Highlighter)
	assert.Equal(t, "mathjax", cfg.MathEngine)
	assert.Equal(t, 15*time.Second, cfg.DiagramTimeoutDuration())
	assert.Equal(t, 25, cfg.Page.Margins.Left)
}

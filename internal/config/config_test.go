package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesFileValuesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
embedding:
  base_url: "http://example.internal:11434"
  model: "custom-model"
search:
  default_k: 25
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://example.internal:11434", cfg.Embedding.BaseURL)
	assert.Equal(t, "custom-model", cfg.Embedding.Model)
	assert.Equal(t, 25, cfg.Search.DefaultK)
	assert.Equal(t, 768, cfg.Embedding.Dim, "unset fields still take their default")
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "nomic-embed-text", cfg.Embedding.Model)
}

func TestLoadExpandsDotSlashPathsRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
storage:
  vector_db_path: "./data/vectors.db"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "data", "vectors.db"), cfg.Storage.VectorDBPath)
}

func TestApplyDefaultsFillsZeroValues(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, "http://localhost:11434", cfg.Embedding.BaseURL)
	assert.Equal(t, 768, cfg.Embedding.Dim)
	assert.Equal(t, "auto", cfg.Chunking.Strategy)
	assert.Equal(t, 50, cfg.Chunking.WindowLines)
	assert.Equal(t, 10, cfg.Search.DefaultK)
	assert.True(t, cfg.Search.HybridByDefaultOrDefault())
	assert.True(t, cfg.Walk.RespectIgnoreFilesOrDefault())
}

func TestSearchConfigHybridByDefaultOrDefault(t *testing.T) {
	disabled := false
	cfg := SearchConfig{HybridByDefault: &disabled}
	assert.False(t, cfg.HybridByDefaultOrDefault())

	assert.True(t, SearchConfig{}.HybridByDefaultOrDefault())
}

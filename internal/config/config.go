// Package config loads the optional YAML configuration file that seeds
// default walker, embedder, and store settings. cobra flags in cmd/ take
// precedence over whatever this package loads. The chunking and search
// sections are parsed and defaulted, but cmd/ does not read them.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds every ambient default for one codesearch invocation.
type Config struct {
	Embedding EmbeddingConfig `yaml:"embedding"`
	Storage   StorageConfig   `yaml:"storage"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Search    SearchConfig    `yaml:"search"`
	Walk      WalkConfig      `yaml:"walk"`
}

// EmbeddingConfig configures the Ollama-backed embedder.
type EmbeddingConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	Dim     int    `yaml:"dim"`
}

// StorageConfig holds on-disk paths for the vector store, lexical index,
// and hash cache.
type StorageConfig struct {
	VectorDBPath    string `yaml:"vector_db_path"`
	LexicalIndexDir string `yaml:"lexical_index_dir"`
	HashCachePath   string `yaml:"hash_cache_path"`
}

// ChunkingConfig configures the chunker's strategy selection.
type ChunkingConfig struct {
	Strategy             string `yaml:"strategy"`
	WindowLines          int    `yaml:"window_lines"`
	SlidingWindowSize    int    `yaml:"sliding_window_size"`
	SlidingWindowOverlap int    `yaml:"sliding_window_overlap"`
}

// SearchConfig holds default hybrid-query parameters.
type SearchConfig struct {
	DefaultK        int   `yaml:"default_k"`
	HybridByDefault *bool `yaml:"hybrid_by_default"`
}

// HybridByDefaultOrDefault reports whether hybrid search is used when a
// caller doesn't say otherwise; defaults to true when unset.
func (s SearchConfig) HybridByDefaultOrDefault() bool {
	if s.HybridByDefault != nil {
		return *s.HybridByDefault
	}
	return true
}

// WalkConfig holds file-walk filters.
type WalkConfig struct {
	IncludePatterns    []string `yaml:"include_patterns"`
	ExcludePatterns    []string `yaml:"exclude_patterns"`
	MaxFileSizeBytes   int64    `yaml:"max_file_size_bytes"`
	RespectIgnoreFiles *bool    `yaml:"respect_ignore_files"`
}

// RespectIgnoreFilesOrDefault reports whether .gitignore/.ignore files
// should be honored; defaults to true when unset.
func (w WalkConfig) RespectIgnoreFilesOrDefault() bool {
	if w.RespectIgnoreFiles != nil {
		return *w.RespectIgnoreFiles
	}
	return true
}

// Load reads and parses the config file at path, applies defaults, and
// makes its relative storage paths absolute (see expandPath). A missing file
// is not an error: Load returns the default configuration instead, since
// the config file itself is optional ambient plumbing.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Fall through with zero-value cfg; ApplyDefaults fills it in.
	default:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.VectorDBPath = expandPath(cfg.Storage.VectorDBPath, configDir)
	cfg.Storage.LexicalIndexDir = expandPath(cfg.Storage.LexicalIndexDir, configDir)
	cfg.Storage.HashCachePath = expandPath(cfg.Storage.HashCachePath, configDir)

	return &cfg, nil
}

// expandPath converts path to absolute. "./"-prefixed paths are relative
// to configDir; other relative paths are relative to the home directory.
func expandPath(path, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}

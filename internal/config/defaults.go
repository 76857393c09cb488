package config

import "codesearch/internal/walker"

// ApplyDefaults fills the zero-value fields of cfg that have a built-in
// default. HashCachePath stays empty and is resolved by callers via
// hashcache.DefaultPath; the include/exclude pattern lists stay empty.
func ApplyDefaults(cfg *Config) {
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "http://localhost:11434"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "nomic-embed-text"
	}
	if cfg.Embedding.Dim == 0 {
		cfg.Embedding.Dim = 768
	}

	if cfg.Storage.VectorDBPath == "" {
		cfg.Storage.VectorDBPath = "./.codesearch/vectors.db"
	}
	if cfg.Storage.LexicalIndexDir == "" {
		cfg.Storage.LexicalIndexDir = "./.codesearch/lexical.bleve"
	}
	if cfg.Storage.HashCachePath == "" {
		cfg.Storage.HashCachePath = "" // resolved via hashcache.DefaultPath at call sites.
	}

	if cfg.Chunking.Strategy == "" {
		cfg.Chunking.Strategy = "auto"
	}
	if cfg.Chunking.WindowLines == 0 {
		cfg.Chunking.WindowLines = 50
	}
	if cfg.Chunking.SlidingWindowSize == 0 {
		cfg.Chunking.SlidingWindowSize = 50
	}
	if cfg.Chunking.SlidingWindowOverlap == 0 {
		cfg.Chunking.SlidingWindowOverlap = 10
	}

	if cfg.Search.DefaultK == 0 {
		cfg.Search.DefaultK = 10
	}

	if cfg.Walk.MaxFileSizeBytes == 0 {
		cfg.Walk.MaxFileSizeBytes = walker.DefaultMaxFileSize
	}
}

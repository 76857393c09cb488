package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"codesearch/internal/chunker"
	"codesearch/internal/chunker/languages"
	"codesearch/internal/config"
	"codesearch/internal/coordinator"
	"codesearch/internal/embedder"
	"codesearch/internal/hashcache"
	"codesearch/internal/lexical"
	"codesearch/internal/vectorstore"
)

// configT aliases config.Config so the rest of cmd/ can reference it without
// importing internal/config directly in every file.
type configT = config.Config

// newLogger builds the process-wide logger from CODESEARCH_LOG_LEVEL (spec
// §6's "optional log-level variable"), mirroring the teacher's
// index.WithLogger convention generalized across every component.
func newLogger() (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if raw := os.Getenv("CODESEARCH_LOG_LEVEL"); raw != "" {
		if err := level.UnmarshalText([]byte(raw)); err != nil {
			return nil, fmt.Errorf("CODESEARCH_LOG_LEVEL=%q: %w", raw, err)
		}
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.Encoding = "console"
	cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	return cfg.Build()
}

// languageRegistry returns a Registry with every AST grammar the teacher
// shipped (go, javascript, typescript, python).
func languageRegistry() *chunker.Registry {
	r := chunker.NewRegistry()
	languages.RegisterGo(r)
	languages.RegisterJavaScript(r)
	languages.RegisterTypeScript(r)
	languages.RegisterPython(r)
	return r
}

// pipeline bundles the opened handles Close needs to release, plus the
// Coordinator built on top of them.
type pipeline struct {
	Coordinator *coordinator.Coordinator
	vectors     *vectorstore.Store
	lexical     *lexical.Index
	logger      *zap.Logger
}

func (p *pipeline) Close() {
	if p.vectors != nil {
		_ = p.vectors.Close()
	}
	if p.lexical != nil {
		_ = p.lexical.Close()
	}
	_ = p.logger.Sync()
}

// buildPipeline wires every pipeline component per SPEC_FULL's ambient and
// domain stacks: config file defaults, cobra flag overrides, a shared zap
// logger, and the Ollama embedder, sqlite-vec-backed vector store, bleve
// lexical index, and YAML hash cache behind the Coordinator.
func buildPipeline(cfgPath string, overrides flagOverrides) (*pipeline, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	overrides.apply(cfg)

	logger, err := newLogger()
	if err != nil {
		return nil, err
	}

	emb := embedder.NewOllamaEmbedder(cfg.Embedding.BaseURL, cfg.Embedding.Model, cfg.Embedding.Dim)

	vectors, err := vectorstore.Open(cfg.Storage.VectorDBPath, vectorstore.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("open vector store: %w", err)
	}

	lex, err := lexical.Open(cfg.Storage.LexicalIndexDir, lexical.WithLogger(logger))
	if err != nil {
		_ = vectors.Close()
		return nil, fmt.Errorf("open lexical index: %w", err)
	}

	hashPath := cfg.Storage.HashCachePath
	if hashPath == "" {
		hashPath, err = hashcache.DefaultPath()
		if err != nil {
			_ = vectors.Close()
			_ = lex.Close()
			return nil, fmt.Errorf("resolve hash cache path: %w", err)
		}
	}
	hashes, err := hashcache.Open(hashPath)
	if err != nil {
		_ = vectors.Close()
		_ = lex.Close()
		return nil, fmt.Errorf("open hash cache: %w", err)
	}

	ck := chunker.New(languageRegistry(), chunker.WithLogger(logger))

	co := coordinator.New(ck, emb, vectors, lex, hashes,
		coordinator.WithLogger(logger),
		coordinator.WithWalkerOptions(overrides.walkerOptions(cfg)),
	)

	return &pipeline{Coordinator: co, vectors: vectors, lexical: lex, logger: logger}, nil
}

// defaultConfigPath returns ./codesearch.yaml in the current working
// directory; Load tolerates it not existing.
func defaultConfigPath() string {
	wd, err := os.Getwd()
	if err != nil {
		return "codesearch.yaml"
	}
	return filepath.Join(wd, "codesearch.yaml")
}

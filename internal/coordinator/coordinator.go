// Package coordinator implements spec §4.7 and §5: the Indexing
// Coordinator that orchestrates Walker -> Chunker -> Embedder -> (Vector
// Store, Lexical Index), owns the per-root indexing lock, and serves the
// hybrid RRF query. It has no teacher analogue (the teacher had no
// lock/broadcast protocol); it is grounded on
// original_source/src/client/index_lock.rs + indexing.rs, translated into
// idiomatic Go with a sync.RWMutex-guarded map instead of a Rust Arc<Mutex>,
// and golang.org/x/sync/errgroup for bounded fan-out instead of Rust's
// JoinSet, matching how dshills-gocontext-mcp uses errgroup for its own
// indexing fan-out.
package coordinator

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"codesearch/internal/chunker"
	"codesearch/internal/embedder"
	"codesearch/internal/types"
	"codesearch/internal/walker"
)

// VectorStore is the subset of the Vector Store contract (spec §4.4) the
// Coordinator depends on.
type VectorStore interface {
	Upsert(ctx context.Context, chunks []types.Chunk) error
	DeleteBy(ctx context.Context, filter types.Filter) error
	Search(ctx context.Context, query []float32, k int, filter types.Filter) ([]types.ScoredChunk, error)
	Clear(ctx context.Context, project string) error
	Stats(ctx context.Context, project string) (types.Stats, error)
}

// LexicalIndex is the subset of the Lexical Index contract (spec §4.5) the
// Coordinator depends on.
type LexicalIndex interface {
	Upsert(ctx context.Context, chunks []types.Chunk) error
	DeleteBy(ctx context.Context, filter types.Filter) error
	Search(ctx context.Context, query string, k int, filter types.Filter) ([]types.ScoredChunk, error)
	Clear(ctx context.Context, project string) error
	Stats(ctx context.Context, project string) (types.Stats, error)
}

// HashCache is the subset of the Hash Cache contract (spec §4.6) the
// Coordinator depends on.
type HashCache interface {
	GetAll(root string) (map[string]string, error)
	Update(root string, hashes map[string]string) error
	Remove(root string) error
}

// ProgressFunc reports indexing milestones (0-100) back to a caller, e.g.
// an MCP progress notification. Supplemented from
// original_source/src/client/indexing.rs, which sends progress
// notifications at the same shape of milestones.
type ProgressFunc func(percent int, message string)

// Coordinator is the pipeline's top-level orchestrator.
type Coordinator struct {
	walkerOpts walker.Options
	chunker    *chunker.Chunker
	embedder   embedder.Embedder
	vectors    VectorStore
	lexical    LexicalIndex
	hashes     HashCache
	logger     *zap.Logger

	embedWorkers int

	inProgressMu sync.RWMutex
	inProgress   map[string]*operation
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger attaches a structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithWalkerOptions overrides the default file-walk options.
func WithWalkerOptions(o walker.Options) Option {
	return func(c *Coordinator) { c.walkerOpts = o }
}

// WithEmbedWorkers bounds the parallel embedding worker pool (spec
// §4.7.2's W_emb). Non-positive means runtime.NumCPU().
func WithEmbedWorkers(n int) Option {
	return func(c *Coordinator) { c.embedWorkers = n }
}

// New builds a Coordinator over the given pipeline components.
func New(ck *chunker.Chunker, emb embedder.Embedder, vectors VectorStore, lexical LexicalIndex, hashes HashCache, opts ...Option) *Coordinator {
	c := &Coordinator{
		chunker:    ck,
		embedder:   emb,
		vectors:    vectors,
		lexical:    lexical,
		hashes:     hashes,
		logger:     zap.NewNop(),
		inProgress: make(map[string]*operation),
	}
	c.walkerOpts.RespectIgnoreFiles = true
	for _, opt := range opts {
		opt(c)
	}
	return c
}

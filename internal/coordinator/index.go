package coordinator

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"codesearch/internal/chunker"
	"codesearch/internal/coreerrors"
	"codesearch/internal/pathkey"
	"codesearch/internal/types"
	"codesearch/internal/walker"
)

// modelKey is a sentinel hash-cache entry (not a real file) recording
// which embedding model produced the vectors currently on disk. Supplement
// from the teacher's idx.store.GetMeta("embedding_model") check: a model
// change invalidates every existing vector's comparability, so Index
// forces full mode instead of trusting the per-file hash comparison.
const modelKey = "\x00embedding_model"

// IndexOptions configures one Index call. The walk uses the Coordinator's
// configured walker.Options unless WalkerOverride is set.
type IndexOptions struct {
	ChunkerOpts chunker.Options
	Progress    ProgressFunc
	// WalkerOverride, if non-nil, replaces the Coordinator's configured
	// walk options for this call only — the per-call include_patterns/
	// exclude_patterns/max_file_size parameters of spec §6's
	// index_codebase. Nil means "use the project-wide defaults".
	WalkerOverride *walker.Options
}

// walkerOptsFor resolves which walker.Options one Index call should use:
// the per-call override when the caller supplied one, else the
// Coordinator's configured defaults.
func (c *Coordinator) walkerOptsFor(opts IndexOptions) walker.Options {
	if opts.WalkerOverride != nil {
		return *opts.WalkerOverride
	}
	return c.walkerOpts
}

// Index implements spec §4.7.1's smart-mode entry: it canonicalizes root,
// acquires the per-root lock (waiting for an in-flight operation if one
// exists), and runs full or incremental indexing based purely on whether
// the hash cache already has entries for this root.
func (c *Coordinator) Index(ctx context.Context, root string, opts IndexOptions) (types.IndexResult, error) {
	canon, err := pathkey.Canonicalize(root)
	if err != nil {
		return types.IndexResult{}, coreerrors.New(coreerrors.KindIoFailure, "coordinator.Index", err)
	}

	op, acquired := c.tryAcquire(canon)
	if !acquired {
		select {
		case <-op.done:
			return op.result, op.resultErr
		case <-ctx.Done():
			return types.IndexResult{}, ctx.Err()
		}
	}
	defer c.release(canon, op)

	opID := uuid.NewString()
	logger := c.logger.With(zap.String("operation_id", opID), zap.String("root", canon))
	logger.Info("index started")

	result, err := c.runIndex(ctx, canon, opts, logger)
	op.broadcast(result, err)
	if err != nil {
		logger.Error("index failed", zap.Error(err))
	} else {
		logger.Info("index finished", zap.String("mode", string(result.Mode)), zap.Int("files", result.FilesIndexed))
	}
	return result, err
}

func (c *Coordinator) runIndex(ctx context.Context, canon string, opts IndexOptions, logger *zap.Logger) (types.IndexResult, error) {
	start := time.Now()
	cached, err := c.hashes.GetAll(canon)
	if err != nil {
		return types.IndexResult{}, coreerrors.New(coreerrors.KindIoFailure, "coordinator.runIndex", err)
	}

	forceFull := cached[modelKey] != "" && cached[modelKey] != c.embedder.Model()
	_, hadFiles := hasRealEntries(cached)

	var result types.IndexResult
	if !hadFiles || forceFull {
		result, err = c.indexFull(ctx, canon, opts, logger)
	} else {
		result, err = c.indexIncremental(ctx, canon, cached, opts, logger)
	}
	result.DurationMS = time.Since(start).Milliseconds()
	return result, err
}

func hasRealEntries(cached map[string]string) (int, bool) {
	n := 0
	for k := range cached {
		if k != modelKey {
			n++
		}
	}
	return n, n > 0
}

func (c *Coordinator) reportProgress(p ProgressFunc, percent int, msg string) {
	if p != nil {
		p(percent, msg)
	}
}

// indexFull implements spec §4.7.2.
func (c *Coordinator) indexFull(ctx context.Context, canon string, opts IndexOptions, logger *zap.Logger) (types.IndexResult, error) {
	result := types.IndexResult{Mode: types.ModeFull}
	c.reportProgress(opts.Progress, 0, "walking")

	files, warnings, err := walker.Walk(canon, c.walkerOptsFor(opts), logger)
	if err != nil {
		return result, coreerrors.New(coreerrors.KindIoFailure, "coordinator.indexFull", err)
	}

	var allChunks []types.Chunk
	newHashes := make(map[string]string)
	warningsDone := make(chan struct{})
	go func() {
		for w := range warnings {
			result.Errors = append(result.Errors, w.Error())
		}
		close(warningsDone)
	}()

	for fi := range files {
		chunks, err := c.chunker.Chunk(canon, fi, opts.ChunkerOpts)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", fi.RelPath, err))
			continue
		}
		allChunks = append(allChunks, chunks...)
		newHashes[fi.RelPath] = fi.Hash
		result.FilesIndexed++
	}
	<-warningsDone
	c.reportProgress(opts.Progress, 20, "chunked")

	result.ChunksCreated = len(allChunks)
	if err := c.embedAndUpsert(ctx, allChunks, opts.Progress); err != nil {
		return result, err
	}
	result.EmbeddingsGenerated = len(allChunks)
	c.reportProgress(opts.Progress, 85, "persisting hash cache")

	newHashes[modelKey] = c.embedder.Model()
	if err := c.hashes.Update(canon, newHashes); err != nil {
		return result, coreerrors.New(coreerrors.KindIoFailure, "coordinator.indexFull", err)
	}

	c.reportProgress(opts.Progress, 100, "done")
	return result, nil
}

// indexIncremental implements spec §4.7.3's new/modified/unchanged/deleted
// classification.
func (c *Coordinator) indexIncremental(ctx context.Context, canon string, cached map[string]string, opts IndexOptions, logger *zap.Logger) (types.IndexResult, error) {
	result := types.IndexResult{Mode: types.ModeIncremental}
	c.reportProgress(opts.Progress, 0, "walking")

	files, warnings, err := walker.Walk(canon, c.walkerOptsFor(opts), logger)
	if err != nil {
		return result, coreerrors.New(coreerrors.KindIoFailure, "coordinator.indexIncremental", err)
	}

	warningsDone := make(chan struct{})
	go func() {
		for w := range warnings {
			result.Errors = append(result.Errors, w.Error())
		}
		close(warningsDone)
	}()

	seen := make(map[string]bool)
	newHashes := make(map[string]string, len(cached))
	var toEmbed []types.Chunk

	for fi := range files {
		seen[fi.RelPath] = true
		prevHash, known := cached[fi.RelPath]

		switch {
		case !known:
			// New.
			chunks, err := c.chunker.Chunk(canon, fi, opts.ChunkerOpts)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", fi.RelPath, err))
				continue
			}
			toEmbed = append(toEmbed, chunks...)
			newHashes[fi.RelPath] = fi.Hash
			result.FilesIndexed++
		case prevHash != fi.Hash:
			// Modified: delete (vector first, lexical second, per spec
			// §4.7.3's fixed ordering) then reinsert.
			if err := c.deleteFile(ctx, canon, fi.Path); err != nil {
				result.Errors = append(result.Errors, err.Error())
				continue
			}
			chunks, err := c.chunker.Chunk(canon, fi, opts.ChunkerOpts)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", fi.RelPath, err))
				continue
			}
			toEmbed = append(toEmbed, chunks...)
			newHashes[fi.RelPath] = fi.Hash
			result.FilesIndexed++
		default:
			// Unchanged: skip, but keep its hash entry.
			newHashes[fi.RelPath] = prevHash
		}
	}
	<-warningsDone
	c.reportProgress(opts.Progress, 40, "classified")

	// Deleted: present in cache but absent from this walk.
	for relPath := range cached {
		if relPath == modelKey || seen[relPath] {
			continue
		}
		absPath := filepath.Join(canon, relPath)
		if err := c.deleteFile(ctx, canon, absPath); err != nil {
			result.Errors = append(result.Errors, err.Error())
		}
	}

	result.ChunksCreated = len(toEmbed)
	if err := c.embedAndUpsert(ctx, toEmbed, opts.Progress); err != nil {
		return result, err
	}
	result.EmbeddingsGenerated = len(toEmbed)
	c.reportProgress(opts.Progress, 85, "persisting hash cache")

	newHashes[modelKey] = c.embedder.Model()
	if err := c.hashes.Update(canon, newHashes); err != nil {
		return result, coreerrors.New(coreerrors.KindIoFailure, "coordinator.indexIncremental", err)
	}

	c.reportProgress(opts.Progress, 100, "done")
	return result, nil
}

// deleteFile removes every chunk for filePath under project, vector store
// first and lexical index second, matching the fixed order spec §4.7.3
// requires so a crash between the two is detectable and self-corrects on
// the next pass.
func (c *Coordinator) deleteFile(ctx context.Context, project, filePath string) error {
	filter := types.Filter{Project: project, FilePath: filePath}
	if err := c.vectors.DeleteBy(ctx, filter); err != nil {
		return coreerrors.New(coreerrors.KindVectorStoreFailure, "coordinator.deleteFile", err)
	}
	if err := c.lexical.DeleteBy(ctx, filter); err != nil {
		return coreerrors.New(coreerrors.KindLexicalIndexFailure, "coordinator.deleteFile", err)
	}
	return nil
}

// embedAndUpsert embeds chunks in batches across a bounded worker pool
// (spec §4.7.2 step 4), then upserts into both stores (step 5). Both
// upserts must complete before the caller records the new hash entry.
func (c *Coordinator) embedAndUpsert(ctx context.Context, chunks []types.Chunk, progress ProgressFunc) error {
	if len(chunks) == 0 {
		return nil
	}

	workers := c.embedWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	type batch struct {
		start int
		end   int
	}
	var batches []batch
	for start := 0; start < len(chunks); start += embedderBatchSize {
		end := start + embedderBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batches = append(batches, batch{start, end})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, b := range batches {
		b := b
		g.Go(func() error {
			texts := make([]string, b.end-b.start)
			for i := b.start; i < b.end; i++ {
				texts[i-b.start] = chunks[i].Content
			}
			vecs, err := c.embedder.Embed(gctx, texts)
			if err != nil {
				return coreerrors.New(coreerrors.KindEmbedderFailure, "coordinator.embedAndUpsert", err)
			}
			for i, v := range vecs {
				chunks[b.start+i].Vector = v
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	c.reportProgress(progress, 60, "embedded")

	if err := c.vectors.Upsert(ctx, chunks); err != nil {
		return coreerrors.New(coreerrors.KindVectorStoreFailure, "coordinator.embedAndUpsert", err)
	}
	if err := c.lexical.Upsert(ctx, chunks); err != nil {
		return coreerrors.New(coreerrors.KindLexicalIndexFailure, "coordinator.embedAndUpsert", err)
	}
	c.reportProgress(progress, 80, "upserted")
	return nil
}

const embedderBatchSize = 32

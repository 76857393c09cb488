package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"codesearch/internal/coreerrors"
	"codesearch/internal/types"
	"codesearch/internal/walker"
)

// Strategy selects how a file is split into chunks.
type Strategy string

const (
	// StrategyAuto uses the AST strategy when a grammar is registered for
	// the file's language, falling back to fixed-lines otherwise (spec
	// §4.2's default behaviour).
	StrategyAuto Strategy = "auto"
	// StrategyFixedLines forces the fixed-size-window fallback.
	StrategyFixedLines Strategy = "fixed_lines"
	// StrategySlidingWindow forces the opt-in overlapping-window strategy.
	StrategySlidingWindow Strategy = "sliding_window"
)

// Options configures one Chunk call.
type Options struct {
	Strategy Strategy
	// WindowLines is N for the fixed-lines strategy. Zero means
	// DefaultWindowLines.
	WindowLines int
	// SlidingWindowSize is W for the sliding-window strategy.
	SlidingWindowSize int
	// SlidingWindowOverlap is O for the sliding-window strategy. Must
	// satisfy 0 <= O < SlidingWindowSize.
	SlidingWindowOverlap int
}

// Validate checks sliding-window configuration per spec §4.2: "if O >= W
// the caller's request is rejected as invalid configuration."
func (o Options) Validate() error {
	if o.Strategy != StrategySlidingWindow {
		return nil
	}
	if o.SlidingWindowSize <= 0 {
		return coreerrors.New(coreerrors.KindConfigInvalid, "chunker.Validate", fmt.Errorf("sliding window size must be > 0"))
	}
	if o.SlidingWindowOverlap < 0 || o.SlidingWindowOverlap >= o.SlidingWindowSize {
		return coreerrors.New(coreerrors.KindConfigInvalid, "chunker.Validate",
			fmt.Errorf("sliding window overlap %d must satisfy 0 <= overlap < size %d", o.SlidingWindowOverlap, o.SlidingWindowSize))
	}
	return nil
}

// Chunker turns a walked FileInfo into the Chunks the rest of the pipeline
// embeds and indexes.
type Chunker struct {
	ast    *ASTChunker
	logger *zap.Logger
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithLogger attaches a structured logger, mirroring the teacher's
// WithLogger convention used across the pipeline's components.
func WithLogger(l *zap.Logger) Option {
	return func(c *Chunker) { c.logger = l }
}

// New builds a Chunker backed by the given language registry.
func New(r *Registry, opts ...Option) *Chunker {
	c := &Chunker{ast: NewASTChunker(r), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Chunk splits one file into Chunks for project (the canonical indexed
// root). Given identical bytes, options, and project/relative path, the
// returned sequence and every chunk's ID are byte-identical across calls
// (spec §4.2 determinism).
func (c *Chunker) Chunk(project string, fi walker.FileInfo, opts Options) ([]types.Chunk, error) {
	if strings.TrimSpace(fi.Content) == "" {
		return nil, nil
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	raw, strategyUsed, err := c.splitRaw(fi, opts)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", fi.RelPath, err)
	}

	chunks := make([]types.Chunk, 0, len(raw))
	now := time.Now()
	for _, r := range raw {
		content := strings.TrimRight(r.Content, "\n")
		if strings.TrimSpace(content) == "" {
			continue
		}
		chunks = append(chunks, types.Chunk{
			ID:           chunkID(project, fi.RelPath, r.StartLine, content),
			Content:      content,
			StartLine:    r.StartLine,
			EndLine:      r.EndLine,
			FilePath:     fi.Path,
			RelativePath: fi.RelPath,
			Project:      project,
			Language:     fi.Language,
			Extension:    fi.Extension,
			FileHash:     fi.Hash,
			IndexedAt:    now,
		})
	}

	c.logger.Debug("chunked file",
		zap.String("path", fi.RelPath),
		zap.String("strategy", string(strategyUsed)),
		zap.Int("chunks", len(chunks)))

	return chunks, nil
}

func (c *Chunker) splitRaw(fi walker.FileInfo, opts Options) ([]RawChunk, Strategy, error) {
	switch opts.Strategy {
	case StrategySlidingWindow:
		return SlidingWindow(fi.Content, opts.SlidingWindowSize, opts.SlidingWindowOverlap), StrategySlidingWindow, nil
	case StrategyFixedLines:
		return FixedLines(fi.Content, opts.WindowLines), StrategyFixedLines, nil
	default:
		nodes, err := c.ast.Chunk(fi.Path, []byte(fi.Content))
		if err != nil {
			return nil, "", err
		}
		if len(nodes) > 0 {
			return nodes, StrategyAuto, nil
		}
		// No grammar registered, or the grammar yielded zero nodes (e.g. a
		// comment-only file): fall back to fixed-lines per spec §4.2's
		// tie-break rule.
		return FixedLines(fi.Content, opts.WindowLines), StrategyFixedLines, nil
	}
}

// chunkID derives a stable identifier from (root, relative_path,
// start_line, content_hash_prefix) per spec §3, so re-chunking identical
// content yields identical ids.
func chunkID(project, relPath string, startLine int, content string) string {
	contentSum := sha256.Sum256([]byte(content))
	contentPrefix := hex.EncodeToString(contentSum[:])[:12]
	key := fmt.Sprintf("%s|%s|%d|%s", project, relPath, startLine, contentPrefix)
	full := sha256.Sum256([]byte(key))
	return hex.EncodeToString(full[:])
}

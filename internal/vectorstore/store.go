// Package vectorstore is the persistent, embedded columnar store of spec
// §4.4: it maps ChunkId -> (vector, payload) and serves cosine-similarity
// top-k search with optional metadata filters. It is backed by SQLite via
// go-sqlite3, with vector distance computed by the sqlite-vec extension's
// scalar functions — the same stack the teacher's internal/store package
// uses, generalized from a single hard-coded embedding width to whatever
// dimension the configured Embedder reports.
package vectorstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"codesearch/internal/coreerrors"
	"codesearch/internal/types"
)

func init() {
	sqlite_vec.Auto()
}

// Store implements spec §4.4's Vector Store contract.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger attaches a structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open creates or opens a SQLite-backed vector store at path, creating the
// parent directory and schema if needed. Writes are durable on successful
// return (SQLite WAL-mode commit); concurrent readers are always safe, and
// the standard library's *sql.DB connection pool serializes writers the
// way spec §4.4 requires ("a single writer at a time suffices").
func Open(path string, opts ...Option) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, coreerrors.New(coreerrors.KindIoFailure, "vectorstore.Open", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, coreerrors.New(coreerrors.KindVectorStoreFailure, "vectorstore.Open", err)
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, coreerrors.New(coreerrors.KindVectorStoreFailure, "vectorstore.Open", err)
	}

	s := &Store{db: db, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Upsert inserts or replaces points, idempotent on Chunk.ID.
func (s *Store) Upsert(ctx context.Context, chunks []types.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return coreerrors.New(coreerrors.KindVectorStoreFailure, "vectorstore.Upsert", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, project, file_path, relative_path, language, extension, file_hash,
		                    start_line, end_line, content, indexed_at, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			project = excluded.project,
			file_path = excluded.file_path,
			relative_path = excluded.relative_path,
			language = excluded.language,
			extension = excluded.extension,
			file_hash = excluded.file_hash,
			start_line = excluded.start_line,
			end_line = excluded.end_line,
			content = excluded.content,
			indexed_at = excluded.indexed_at,
			embedding = excluded.embedding
	`)
	if err != nil {
		return coreerrors.New(coreerrors.KindVectorStoreFailure, "vectorstore.Upsert", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		blob, err := sqlite_vec.SerializeFloat32(c.Vector)
		if err != nil {
			return coreerrors.New(coreerrors.KindVectorStoreFailure, "vectorstore.Upsert", fmt.Errorf("serialize vector for %s: %w", c.ID, err))
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.Project, c.FilePath, c.RelativePath, c.Language, c.Extension,
			c.FileHash, c.StartLine, c.EndLine, c.Content, c.IndexedAt, blob); err != nil {
			return coreerrors.New(coreerrors.KindVectorStoreFailure, "vectorstore.Upsert", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return coreerrors.New(coreerrors.KindVectorStoreFailure, "vectorstore.Upsert", err)
	}
	s.logger.Debug("vectorstore upsert", zap.Int("count", len(chunks)))
	return nil
}

// DeleteBy removes every point matching filter.
func (s *Store) DeleteBy(ctx context.Context, filter types.Filter) error {
	where, args := filterClause(filter)
	if where == "" {
		return coreerrors.New(coreerrors.KindConfigInvalid, "vectorstore.DeleteBy", fmt.Errorf("refusing to delete with an empty filter"))
	}
	_, err := s.db.ExecContext(ctx, "DELETE FROM chunks WHERE "+where, args...)
	if err != nil {
		return coreerrors.New(coreerrors.KindVectorStoreFailure, "vectorstore.DeleteBy", err)
	}
	return nil
}

// Clear removes every point whose project equals the argument.
func (s *Store) Clear(ctx context.Context, project string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM chunks WHERE project = ?", project)
	if err != nil {
		return coreerrors.New(coreerrors.KindVectorStoreFailure, "vectorstore.Clear", err)
	}
	return nil
}

// Search returns the k points whose embedding is closest to query by
// cosine similarity, narrowed by filter. Score is in [-1, 1], higher is
// better.
func (s *Store) Search(ctx context.Context, query []float32, k int, filter types.Filter) ([]types.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}
	blob, err := sqlite_vec.SerializeFloat32(query)
	if err != nil {
		return nil, coreerrors.New(coreerrors.KindVectorStoreFailure, "vectorstore.Search", fmt.Errorf("serialize query vector: %w", err))
	}

	sqlStr := `
		SELECT id, project, file_path, relative_path, language, extension, file_hash,
		       start_line, end_line, content, indexed_at,
		       (1.0 - vec_distance_cosine(embedding, ?)) AS score
		FROM chunks`
	args := []any{blob}

	if where, whereArgs := filterClause(filter); where != "" {
		sqlStr += " WHERE " + where
		args = append(args, whereArgs...)
	}
	sqlStr += " ORDER BY score DESC LIMIT ?"
	args = append(args, k)

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, coreerrors.New(coreerrors.KindVectorStoreFailure, "vectorstore.Search", err)
	}
	defer rows.Close()

	var results []types.ScoredChunk
	for rows.Next() {
		var c types.Chunk
		var score float64
		if err := rows.Scan(&c.ID, &c.Project, &c.FilePath, &c.RelativePath, &c.Language, &c.Extension,
			&c.FileHash, &c.StartLine, &c.EndLine, &c.Content, &c.IndexedAt, &score); err != nil {
			return nil, coreerrors.New(coreerrors.KindVectorStoreFailure, "vectorstore.Search", err)
		}
		results = append(results, types.ScoredChunk{Chunk: c, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, coreerrors.New(coreerrors.KindVectorStoreFailure, "vectorstore.Search", err)
	}
	return results, nil
}

// Stats summarizes the contents of one project.
func (s *Store) Stats(ctx context.Context, project string) (types.Stats, error) {
	var stats types.Stats
	row := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COUNT(DISTINCT file_path) FROM chunks WHERE project = ?", project)
	if err := row.Scan(&stats.ChunkCount, &stats.DistinctFiles); err != nil {
		return stats, coreerrors.New(coreerrors.KindVectorStoreFailure, "vectorstore.Stats", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT language, COUNT(*) FROM chunks WHERE project = ? GROUP BY language", project)
	if err != nil {
		return stats, coreerrors.New(coreerrors.KindVectorStoreFailure, "vectorstore.Stats", err)
	}
	defer rows.Close()

	stats.PerLanguageCounts = make(map[string]int)
	for rows.Next() {
		var lang string
		var count int
		if err := rows.Scan(&lang, &count); err != nil {
			return stats, coreerrors.New(coreerrors.KindVectorStoreFailure, "vectorstore.Stats", err)
		}
		stats.PerLanguageCounts[lang] = count
	}
	return stats, rows.Err()
}

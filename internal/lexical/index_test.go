package lexical

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"codesearch/internal/types"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "lex.bleve")
	idx, err := Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func lexChunk(id, project, filePath, content string) types.Chunk {
	return types.Chunk{
		ID:           id,
		Project:      project,
		FilePath:     filePath,
		RelativePath: filePath,
		Language:     "go",
		Extension:    "go",
		StartLine:    1,
		EndLine:      5,
		Content:      content,
		IndexedAt:    time.Now(),
	}
}

func TestUpsertAndSearchFindsCamelCaseViaSnakeCase(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []types.Chunk{
		lexChunk("c1", "proj", "auth.go", "func authenticateUser() error { return nil }"),
	}))

	results, err := idx.Search(ctx, "authenticate_user", 10, types.Filter{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "c1", results[0].Chunk.ID)
}

func TestDeleteByFileRemovesOnlyThatFile(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []types.Chunk{
		lexChunk("c1", "proj", "a.go", "package a"),
		lexChunk("c2", "proj", "b.go", "package b"),
	}))

	require.NoError(t, idx.DeleteBy(ctx, types.Filter{Project: "proj", FilePath: "a.go"}))

	stats, err := idx.Stats(ctx, "proj")
	require.NoError(t, err)
	require.Equal(t, 1, stats.ChunkCount)
}

func TestClearRemovesProjectOnly(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []types.Chunk{
		lexChunk("c1", "proj1", "a.go", "package a"),
		lexChunk("c2", "proj2", "b.go", "package b"),
	}))

	require.NoError(t, idx.Clear(ctx, "proj1"))

	stats, err := idx.Stats(ctx, "proj1")
	require.NoError(t, err)
	require.Equal(t, 0, stats.ChunkCount)
}

func TestSearchOnEmptyIndexReturnsEmpty(t *testing.T) {
	idx := openTestIndex(t)
	results, err := idx.Search(context.Background(), "nothing here", 10, types.Filter{})
	require.NoError(t, err)
	require.Empty(t, results)
}

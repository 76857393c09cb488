package vectorstore

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"codesearch/internal/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vectors.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func unitVector(lead float32, dim int) []float32 {
	v := make([]float32, dim)
	v[0] = lead
	v[1] = float32(math.Sqrt(float64(1 - lead*lead)))
	return v
}

func chunk(id, project, filePath string, vec []float32) types.Chunk {
	return types.Chunk{
		ID:           id,
		Project:      project,
		FilePath:     filePath,
		RelativePath: filePath,
		Language:     "go",
		Extension:    "go",
		FileHash:     "h",
		StartLine:    1,
		EndLine:      10,
		Content:      "content of " + id,
		IndexedAt:    time.Now(),
		Vector:       vec,
	}
}

func TestUpsertAndSearch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	c := chunk("c1", "proj", "a.go", unitVector(1, 4))
	require.NoError(t, s.Upsert(ctx, []types.Chunk{c}))

	results, err := s.Search(ctx, unitVector(1, 4), 10, types.Filter{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "c1", results[0].Chunk.ID)
}

func TestUpsertIsIdempotentOnID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	c := chunk("c1", "proj", "a.go", unitVector(1, 4))
	require.NoError(t, s.Upsert(ctx, []types.Chunk{c}))

	c.Content = "updated content"
	require.NoError(t, s.Upsert(ctx, []types.Chunk{c}))

	stats, err := s.Stats(ctx, "proj")
	require.NoError(t, err)
	require.Equal(t, 1, stats.ChunkCount)
}

func TestDeleteByFilter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, []types.Chunk{
		chunk("c1", "proj", "a.go", unitVector(1, 4)),
		chunk("c2", "proj", "b.go", unitVector(0.5, 4)),
	}))

	require.NoError(t, s.DeleteBy(ctx, types.Filter{Project: "proj", FilePath: "a.go"}))

	stats, err := s.Stats(ctx, "proj")
	require.NoError(t, err)
	require.Equal(t, 1, stats.ChunkCount)
}

func TestClearRemovesOnlyMatchingProject(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, []types.Chunk{
		chunk("c1", "proj1", "a.go", unitVector(1, 4)),
		chunk("c2", "proj2", "b.go", unitVector(0.5, 4)),
	}))

	require.NoError(t, s.Clear(ctx, "proj1"))

	stats1, err := s.Stats(ctx, "proj1")
	require.NoError(t, err)
	require.Equal(t, 0, stats1.ChunkCount)

	stats2, err := s.Stats(ctx, "proj2")
	require.NoError(t, err)
	require.Equal(t, 1, stats2.ChunkCount)
}

func TestSearchOnEmptyStoreReturnsEmpty(t *testing.T) {
	s := openTestStore(t)
	results, err := s.Search(context.Background(), unitVector(1, 4), 10, types.Filter{})
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestDeleteByRefusesEmptyFilter(t *testing.T) {
	s := openTestStore(t)
	err := s.DeleteBy(context.Background(), types.Filter{})
	require.Error(t, err)
}

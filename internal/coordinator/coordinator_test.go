package coordinator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codesearch/internal/chunker"
	"codesearch/internal/coreerrors"
	"codesearch/internal/embedder"
	"codesearch/internal/types"
)

// fakeVectorStore and fakeLexicalIndex are minimal in-memory stand-ins for
// the real stores, letting the coordinator's orchestration logic be tested
// without sqlite-vec or bleve on disk.

type fakeVectorStore struct {
	mu     sync.Mutex
	chunks map[string]types.Chunk
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{chunks: make(map[string]types.Chunk)}
}

func (f *fakeVectorStore) Upsert(_ context.Context, chunks []types.Chunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range chunks {
		f.chunks[c.ID] = c
	}
	return nil
}

func (f *fakeVectorStore) DeleteBy(_ context.Context, filter types.Filter) error {
	if filter.IsZero() {
		return coreerrors.New(coreerrors.KindConfigInvalid, "fakeVectorStore.DeleteBy", fmt.Errorf("empty filter"))
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, c := range f.chunks {
		if matchesFilter(c, filter) {
			delete(f.chunks, id)
		}
	}
	return nil
}

func (f *fakeVectorStore) Search(_ context.Context, _ []float32, k int, filter types.Filter) ([]types.ScoredChunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.ScoredChunk
	for _, c := range f.chunks {
		if !filter.IsZero() && !matchesFilter(c, filter) {
			continue
		}
		out = append(out, types.ScoredChunk{Chunk: c, Score: 0.9})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Chunk.ID < out[j].Chunk.ID })
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (f *fakeVectorStore) Clear(_ context.Context, project string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, c := range f.chunks {
		if c.Project == project {
			delete(f.chunks, id)
		}
	}
	return nil
}

func (f *fakeVectorStore) Stats(_ context.Context, project string) (types.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := types.Stats{PerLanguageCounts: make(map[string]int)}
	files := make(map[string]bool)
	for _, c := range f.chunks {
		if c.Project != project {
			continue
		}
		stats.ChunkCount++
		files[c.RelativePath] = true
		stats.PerLanguageCounts[c.Language]++
	}
	stats.DistinctFiles = len(files)
	return stats, nil
}

type fakeLexicalIndex struct {
	mu     sync.Mutex
	chunks map[string]types.Chunk
}

func newFakeLexicalIndex() *fakeLexicalIndex {
	return &fakeLexicalIndex{chunks: make(map[string]types.Chunk)}
}

func (f *fakeLexicalIndex) Upsert(_ context.Context, chunks []types.Chunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range chunks {
		f.chunks[c.ID] = c
	}
	return nil
}

func (f *fakeLexicalIndex) DeleteBy(_ context.Context, filter types.Filter) error {
	if filter.IsZero() {
		return coreerrors.New(coreerrors.KindConfigInvalid, "fakeLexicalIndex.DeleteBy", fmt.Errorf("empty filter"))
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, c := range f.chunks {
		if matchesFilter(c, filter) {
			delete(f.chunks, id)
		}
	}
	return nil
}

func (f *fakeLexicalIndex) Search(_ context.Context, query string, k int, filter types.Filter) ([]types.ScoredChunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.ScoredChunk
	for _, c := range f.chunks {
		if !filter.IsZero() && !matchesFilter(c, filter) {
			continue
		}
		if query != "" && !containsToken(c.Content, query) {
			continue
		}
		out = append(out, types.ScoredChunk{Chunk: c, Score: 1.0})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Chunk.ID < out[j].Chunk.ID })
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (f *fakeLexicalIndex) Clear(_ context.Context, project string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, c := range f.chunks {
		if c.Project == project {
			delete(f.chunks, id)
		}
	}
	return nil
}

func (f *fakeLexicalIndex) Stats(_ context.Context, project string) (types.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := types.Stats{PerLanguageCounts: make(map[string]int)}
	files := make(map[string]bool)
	for _, c := range f.chunks {
		if c.Project != project {
			continue
		}
		stats.ChunkCount++
		files[c.RelativePath] = true
		stats.PerLanguageCounts[c.Language]++
	}
	stats.DistinctFiles = len(files)
	return stats, nil
}

func containsToken(content, query string) bool {
	return len(query) > 0 && (content == query || stringsContains(content, query))
}

func stringsContains(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

func matchesFilter(c types.Chunk, f types.Filter) bool {
	if f.Project != "" && c.Project != f.Project {
		return false
	}
	if f.FilePath != "" && c.FilePath != f.FilePath {
		return false
	}
	return true
}

type fakeHashCache struct {
	mu   sync.Mutex
	data map[string]map[string]string
}

func newFakeHashCache() *fakeHashCache {
	return &fakeHashCache{data: make(map[string]map[string]string)}
}

func (f *fakeHashCache) GetAll(root string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string)
	for k, v := range f.data[root] {
		out[k] = v
	}
	return out, nil
}

func (f *fakeHashCache) Update(root string, hashes map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	snapshot := make(map[string]string, len(hashes))
	for k, v := range hashes {
		snapshot[k] = v
	}
	f.data[root] = snapshot
	return nil
}

func (f *fakeHashCache) Remove(root string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, root)
	return nil
}

func newTestCoordinator() (*Coordinator, *fakeVectorStore, *fakeLexicalIndex, *fakeHashCache) {
	reg := chunker.NewRegistry()
	ck := chunker.New(reg)
	emb := embedder.NewMockEmbedder(8)
	vecs := newFakeVectorStore()
	lex := newFakeLexicalIndex()
	hashes := newFakeHashCache()
	c := New(ck, emb, vecs, lex, hashes)
	return c, vecs, lex, hashes
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestIndexFullThenIncrementalSingleFileChange(t *testing.T) {
	c, vecs, _, _ := newTestCoordinator()
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a\n\nfunc Hello() string {\n\treturn \"hello\"\n}\n")
	writeFile(t, root, "b.go", "package a\n\nfunc World() string {\n\treturn \"world\"\n}\n")

	ctx := context.Background()
	result, err := c.Index(ctx, root, IndexOptions{})
	require.NoError(t, err)
	assert.Equal(t, types.ModeFull, result.Mode)
	assert.Equal(t, 2, result.FilesIndexed)

	statsBefore, err := c.GetStatistics(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, 2, statsBefore.DistinctFiles)

	writeFile(t, root, "a.go", "package a\n\nfunc Hello() string {\n\treturn \"hello, updated\"\n}\n")
	result2, err := c.Index(ctx, root, IndexOptions{})
	require.NoError(t, err)
	assert.Equal(t, types.ModeIncremental, result2.Mode)
	assert.Equal(t, 1, result2.FilesIndexed)

	var foundUpdated bool
	for _, c := range vecs.chunks {
		if c.RelativePath == "a.go" {
			assert.Contains(t, c.Content, "updated")
			foundUpdated = true
		}
	}
	assert.True(t, foundUpdated)
}

func TestIndexIncrementalRemovesDeletedFile(t *testing.T) {
	c, vecs, lex, _ := newTestCoordinator()
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a\n\nfunc Hello() string { return \"x\" }\n")
	writeFile(t, root, "b.go", "package a\n\nfunc World() string { return \"y\" }\n")

	ctx := context.Background()
	_, err := c.Index(ctx, root, IndexOptions{})
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(root, "b.go")))
	_, err = c.Index(ctx, root, IndexOptions{})
	require.NoError(t, err)

	for _, chunk := range vecs.chunks {
		assert.NotEqual(t, "b.go", chunk.RelativePath)
	}
	for _, chunk := range lex.chunks {
		assert.NotEqual(t, "b.go", chunk.RelativePath)
	}
}

func TestConcurrentIndexCallsShareOneResult(t *testing.T) {
	c, _, _, _ := newTestCoordinator()
	root := t.TempDir()
	for i := 0; i < 20; i++ {
		writeFile(t, root, fmt.Sprintf("f%d.go", i), fmt.Sprintf("package a\nfunc F%d() {}\n", i))
	}

	ctx := context.Background()
	var wg sync.WaitGroup
	results := make([]types.IndexResult, 4)
	errs := make([]error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Index(ctx, root, IndexOptions{})
		}(i)
	}
	wg.Wait()

	for i := range errs {
		require.NoError(t, errs[i])
	}
	for i := 1; i < len(results); i++ {
		assert.Equal(t, results[0].FilesIndexed, results[i].FilesIndexed)
		assert.Equal(t, results[0].Mode, results[i].Mode)
	}
}

func TestQueryHybridRanksExactTokenMatchFirst(t *testing.T) {
	c, _, _, _ := newTestCoordinator()
	root := t.TempDir()
	writeFile(t, root, "needle.go", "package a\n\nfunc FindTheNeedleInHaystack() int {\n\treturn 42\n}\n")
	writeFile(t, root, "other.go", "package a\n\nfunc Unrelated() int {\n\treturn 1\n}\n")

	ctx := context.Background()
	_, err := c.Index(ctx, root, IndexOptions{})
	require.NoError(t, err)

	results, err := c.Query(ctx, "FindTheNeedleInHaystack", QueryOptions{K: 5, Hybrid: true})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Contains(t, results[0].Content, "FindTheNeedleInHaystack")
}

func TestQueryMinScoreLadderDescendsUntilResultsAppear(t *testing.T) {
	c, vecs, _, _ := newTestCoordinator()
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a\nfunc A() {}\n")

	ctx := context.Background()
	_, err := c.Index(ctx, root, IndexOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, vecs.chunks)

	// The fake vector store always scores hits at 0.9, so a min score above
	// that should fail the top rung and fall through the ladder to one it
	// clears.
	tooHigh := 0.95
	results, err := c.Query(ctx, "A", QueryOptions{K: 5, Hybrid: false, MinScore: &tooHigh})
	require.NoError(t, err)
	assert.NotEmpty(t, results, "ladder should have descended to a rung the fake store's 0.9 score clears")
}

func TestClearIndexRemovesProjectOnly(t *testing.T) {
	c, vecs, _, hashes := newTestCoordinator()
	root1 := t.TempDir()
	root2 := t.TempDir()
	writeFile(t, root1, "a.go", "package a\nfunc A() {}\n")
	writeFile(t, root2, "b.go", "package b\nfunc B() {}\n")

	ctx := context.Background()
	_, err := c.Index(ctx, root1, IndexOptions{})
	require.NoError(t, err)
	_, err = c.Index(ctx, root2, IndexOptions{})
	require.NoError(t, err)

	require.NoError(t, c.ClearIndex(ctx, root1))

	canon1, err := filepath.EvalSymlinks(root1)
	require.NoError(t, err)
	canon2, err := filepath.EvalSymlinks(root2)
	require.NoError(t, err)

	for _, chunk := range vecs.chunks {
		assert.NotEqual(t, canon1, chunk.Project)
	}
	stats2, err := c.GetStatistics(ctx, root2)
	require.NoError(t, err)
	assert.Equal(t, 1, stats2.DistinctFiles)

	h1, err := hashes.GetAll(root1)
	require.NoError(t, err)
	assert.Empty(t, h1)
	_ = canon2
}

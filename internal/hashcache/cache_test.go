package hashcache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "hashcache.yaml"))
	require.NoError(t, err)
	return c
}

func TestGetAllOnUnknownRootReturnsEmpty(t *testing.T) {
	c := openTestCache(t)
	m, err := c.GetAll("/some/root")
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestUpdateThenGetAllRoundTrips(t *testing.T) {
	c := openTestCache(t)
	root := t.TempDir()

	want := map[string]string{"a.go": "hash-a", "b.go": "hash-b"}
	require.NoError(t, c.Update(root, want))

	got, err := c.GetAll(root)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestUpdateOverwritesPreviousSnapshot(t *testing.T) {
	c := openTestCache(t)
	root := t.TempDir()

	require.NoError(t, c.Update(root, map[string]string{"a.go": "h1"}))
	require.NoError(t, c.Update(root, map[string]string{"b.go": "h2"}))

	got, err := c.GetAll(root)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"b.go": "h2"}, got)
}

func TestRemoveClearsRootEntry(t *testing.T) {
	c := openTestCache(t)
	root := t.TempDir()

	require.NoError(t, c.Update(root, map[string]string{"a.go": "h1"}))
	require.NoError(t, c.Remove(root))

	got, err := c.GetAll(root)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTwoRootsDoNotInterfere(t *testing.T) {
	c := openTestCache(t)
	root1 := t.TempDir()
	root2 := t.TempDir()

	require.NoError(t, c.Update(root1, map[string]string{"a.go": "h1"}))
	require.NoError(t, c.Update(root2, map[string]string{"b.go": "h2"}))

	got1, err := c.GetAll(root1)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a.go": "h1"}, got1)

	got2, err := c.GetAll(root2)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"b.go": "h2"}, got2)
}

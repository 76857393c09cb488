// Package hashcache is the persistent root -> {relative_path -> sha256}
// mapping of spec §4.6, used by the Indexing Coordinator to classify files
// as new/modified/unchanged/deleted across runs. It is new relative to the
// teacher (which re-hashed every file on every run), grounded on
// original_source/src/cache.rs's HashCache but rendered in YAML
// (gopkg.in/yaml.v3, the pack's own ecosystem default for human-readable
// structured config) instead of the original's serde_json, per spec §4.6's
// "human-readable structured-data format" requirement.
package hashcache

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"codesearch/internal/coreerrors"
	"codesearch/internal/pathkey"
)

// file is the on-disk shape: one YAML document holding every indexed
// root's hash table, so a single per-user file covers every corpus.
type file struct {
	Roots map[string]map[string]string `yaml:"roots"`
}

// Cache is a persistent, file-backed hash cache. Reads are snapshots taken
// under the cache's mutex; writes are atomic at root granularity via
// rename-into-place.
type Cache struct {
	mu   sync.Mutex
	path string
}

// DefaultPath returns the per-user cache file location: a single file
// holding every root, as spec §6 requires.
func DefaultPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("hashcache: resolve user cache dir: %w", err)
	}
	return filepath.Join(dir, "codesearch", "hashcache.yaml"), nil
}

// Open loads (or prepares to create) the cache file at path.
func Open(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, coreerrors.New(coreerrors.KindIoFailure, "hashcache.Open", err)
	}
	return &Cache{path: path}, nil
}

func (c *Cache) load() (file, error) {
	var f file
	data, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		f.Roots = make(map[string]map[string]string)
		return f, nil
	}
	if err != nil {
		return f, coreerrors.New(coreerrors.KindIoFailure, "hashcache.load", err)
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, coreerrors.New(coreerrors.KindIoFailure, "hashcache.load", fmt.Errorf("parse %s: %w", c.path, err))
	}
	if f.Roots == nil {
		f.Roots = make(map[string]map[string]string)
	}
	return f, nil
}

// GetAll returns a snapshot of the relative_path -> sha256 map for root,
// or an empty (non-nil) map if root has never been indexed.
func (c *Cache) GetAll(root string) (map[string]string, error) {
	canon, err := pathkey.Canonicalize(root)
	if err != nil {
		return nil, coreerrors.New(coreerrors.KindIoFailure, "hashcache.GetAll", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := c.load()
	if err != nil {
		return nil, err
	}
	existing := f.Roots[canon]
	out := make(map[string]string, len(existing))
	for k, v := range existing {
		out[k] = v
	}
	return out, nil
}

// Update replaces the entire relative_path -> sha256 map for root,
// writing the whole cache file atomically via rename-into-place.
func (c *Cache) Update(root string, hashes map[string]string) error {
	canon, err := pathkey.Canonicalize(root)
	if err != nil {
		return coreerrors.New(coreerrors.KindIoFailure, "hashcache.Update", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := c.load()
	if err != nil {
		return err
	}
	copied := make(map[string]string, len(hashes))
	for k, v := range hashes {
		copied[k] = v
	}
	f.Roots[canon] = copied
	return c.writeAtomic(f)
}

// Remove deletes root's entry entirely (used when a project is cleared).
func (c *Cache) Remove(root string) error {
	canon, err := pathkey.Canonicalize(root)
	if err != nil {
		return coreerrors.New(coreerrors.KindIoFailure, "hashcache.Remove", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := c.load()
	if err != nil {
		return err
	}
	delete(f.Roots, canon)
	return c.writeAtomic(f)
}

func (c *Cache) writeAtomic(f file) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return coreerrors.New(coreerrors.KindIoFailure, "hashcache.writeAtomic", err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return coreerrors.New(coreerrors.KindIoFailure, "hashcache.writeAtomic", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return coreerrors.New(coreerrors.KindIoFailure, "hashcache.writeAtomic", err)
	}
	return nil
}

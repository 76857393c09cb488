// Package pathkey canonicalizes filesystem roots so they can be used as map
// keys. The hash cache and the indexing coordinator's lock table both key on
// this form; using anything else invites the "mismatched normalisation"
// class of bug where a symlinked path and its real target are treated as
// two different roots.
package pathkey

import "path/filepath"

// Canonicalize resolves path to an absolute, symlink-resolved, cleaned
// form. If symlink resolution fails (path does not exist yet, permission
// denied, ...) it falls back to the cleaned absolute path so callers can
// still canonicalize roots that haven't been created on disk.
func Canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	abs = filepath.Clean(abs)

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return abs, nil
	}
	return filepath.Clean(resolved), nil
}

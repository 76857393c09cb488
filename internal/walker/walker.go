// Package walker enumerates candidate source files under a root, filtering
// by ignore rules, size, and a binary-content heuristic, and emits decoded
// FileInfo records ready for chunking.
package walker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"codesearch/internal/pathkey"
)

// DefaultMaxFileSize is the size ceiling applied when Options.MaxFileSize is
// zero.
const DefaultMaxFileSize = 1 << 20 // 1 MiB

// FileInfo describes one discovered, decoded source file.
type FileInfo struct {
	Path      string // absolute canonical path
	RelPath   string // slash-separated, relative to root
	Content   string // decoded UTF-8 text
	Language  string
	Extension string // without the leading dot
	Hash      string // hex-encoded SHA-256 of the raw file bytes
	Size      int64
}

// Warning is a non-fatal per-file failure (permission denied, read error,
// decode failure). The walk continues past these.
type Warning struct {
	Path string
	Err  error
}

func (w Warning) Error() string { return fmt.Sprintf("%s: %v", w.Path, w.Err) }

// Options configures a walk.
type Options struct {
	// IncludePatterns, if non-empty, requires a relative path to contain at
	// least one of these substrings. Disjunctive.
	IncludePatterns []string
	// ExcludePatterns rejects a relative path containing any of these
	// substrings. Disjunctive, and wins over IncludePatterns on conflict.
	ExcludePatterns []string
	// MaxFileSize rejects files larger than this many bytes. Zero means
	// DefaultMaxFileSize.
	MaxFileSize int64
	// RespectIgnoreFiles enables the built-in ignore list and
	// .gitignore/.ignore loading. The zero value disables both (the .git
	// skip still applies); coordinator.New and the config loader set it to
	// true unless told otherwise.
	RespectIgnoreFiles bool
}

// Walk traverses root and streams FileInfo on the returned channel, with
// per-file warnings on the second channel. Both channels close when the
// walk finishes. The only error Walk returns directly is failure to open
// root itself; everything else becomes a Warning.
func Walk(root string, opts Options, logger *zap.Logger) (<-chan FileInfo, <-chan Warning, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	absRoot, err := pathkey.Canonicalize(root)
	if err != nil {
		return nil, nil, fmt.Errorf("walker: canonicalize root: %w", err)
	}
	if info, err := os.Stat(absRoot); err != nil {
		return nil, nil, fmt.Errorf("walker: open root: %w", err)
	} else if !info.IsDir() {
		return nil, nil, fmt.Errorf("walker: root %s is not a directory", absRoot)
	}

	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	var matcher interface{ MatchesPath(string) bool }
	if opts.RespectIgnoreFiles {
		matcher = loadIgnoreMatcher(absRoot)
	}

	files := make(chan FileInfo, 64)
	warnings := make(chan Warning, 64)

	go func() {
		defer close(files)
		defer close(warnings)

		_ = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				warnings <- Warning{Path: path, Err: err}
				return nil
			}
			if path == absRoot {
				return nil
			}

			rel, relErr := filepath.Rel(absRoot, path)
			if relErr != nil {
				warnings <- Warning{Path: path, Err: relErr}
				return nil
			}
			rel = filepath.ToSlash(rel)

			if d.IsDir() {
				if d.Name() == ".git" {
					return filepath.SkipDir
				}
				if matcher != nil && matcher.MatchesPath(rel) {
					return filepath.SkipDir
				}
				return nil
			}

			if d.Type()&fs.ModeSymlink != 0 {
				return nil
			}
			if matcher != nil && matcher.MatchesPath(rel) {
				return nil
			}
			if !matchesIncludeExclude(rel, opts.IncludePatterns, opts.ExcludePatterns) {
				return nil
			}

			info, infoErr := d.Info()
			if infoErr != nil {
				warnings <- Warning{Path: path, Err: infoErr}
				return nil
			}
			if info.Size() > maxSize {
				return nil
			}

			fi, fileErr := readFile(absRoot, path, rel, info.Size())
			if fileErr != nil {
				logger.Debug("skipping file", zap.String("path", rel), zap.Error(fileErr))
				warnings <- Warning{Path: path, Err: fileErr}
				return nil
			}
			if fi == nil {
				// Binary; silently skipped per spec (not a warning).
				return nil
			}

			files <- *fi
			return nil
		})
	}()

	return files, warnings, nil
}

// matchesIncludeExclude applies the include/exclude substring predicates:
// include is disjunctive (empty means "match everything"), exclude is
// disjunctive and wins on conflict.
func matchesIncludeExclude(relPath string, include, exclude []string) bool {
	for _, pat := range exclude {
		if pat != "" && strings.Contains(relPath, pat) {
			return false
		}
	}
	if len(include) == 0 {
		return true
	}
	for _, pat := range include {
		if pat != "" && strings.Contains(relPath, pat) {
			return true
		}
	}
	return false
}

// readFile reads, hashes, and decodes a candidate file. It returns
// (nil, nil) for binary files (silently skipped) and (nil, err) for
// decode/read failures (reported as a Warning by the caller).
func readFile(absRoot, path, rel string, size int64) (*FileInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	if isBinary(data) {
		return nil, nil
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("invalid UTF-8")
	}

	sum := sha256.Sum256(data)

	return &FileInfo{
		Path:      path,
		RelPath:   rel,
		Content:   string(data),
		Language:  DetectLanguage(rel),
		Extension: extOf(rel),
		Hash:      hex.EncodeToString(sum[:]),
		Size:      size,
	}, nil
}

package lexical

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"codesearch/internal/coreerrors"
)

// StaleWriterLock is the mtime age (spec §4.5, glossary "Stale lock") past
// which a writer-lock file is presumed abandoned and safe to remove before
// a new writer attempts acquisition.
const StaleWriterLock = 5 * time.Minute

// writerLock is a cross-process, single-writer file lock scoped to one
// index directory. Multiple lock files named ".writer-lock-*" can appear
// transiently (spec §4.5); acquire cleans up any it finds stale and fails
// with LexicalIndexBusy only when a fresh one survives.
type writerLock struct {
	dir  string
	path string
}

func newWriterLock(dir string) *writerLock {
	return &writerLock{dir: dir}
}

// acquire holds the lock for the duration of a single write. Callers must
// call release promptly afterward (spec §4.5: "Hold the writer lock only
// during the write; release promptly").
func (w *writerLock) acquire() error {
	matches, _ := filepath.Glob(filepath.Join(w.dir, ".writer-lock-*"))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		if time.Since(info.ModTime()) > StaleWriterLock {
			_ = os.Remove(m)
			continue
		}
		return coreerrors.New(coreerrors.KindLexicalIndexBusy, "lexical.writerLock.acquire",
			fmt.Errorf("writer lock %s held since %s", filepath.Base(m), info.ModTime()))
	}

	path := filepath.Join(w.dir, fmt.Sprintf(".writer-lock-%d-%d", os.Getpid(), time.Now().UnixNano()))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return coreerrors.New(coreerrors.KindLexicalIndexBusy, "lexical.writerLock.acquire", err)
		}
		return coreerrors.New(coreerrors.KindIoFailure, "lexical.writerLock.acquire", err)
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	if err := f.Close(); err != nil {
		return coreerrors.New(coreerrors.KindIoFailure, "lexical.writerLock.acquire", err)
	}
	w.path = path
	return nil
}

func (w *writerLock) release() error {
	if w.path == "" {
		return nil
	}
	err := os.Remove(w.path)
	w.path = ""
	if err != nil && !os.IsNotExist(err) {
		return coreerrors.New(coreerrors.KindIoFailure, "lexical.writerLock.release", err)
	}
	return nil
}

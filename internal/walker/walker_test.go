package walker

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func collect(t *testing.T, root string, opts Options) ([]FileInfo, []Warning) {
	t.Helper()
	files, warns, err := Walk(root, opts, nil)
	require.NoError(t, err)

	var fi []FileInfo
	var wn []Warning
	for files != nil || warns != nil {
		select {
		case f, ok := <-files:
			if !ok {
				files = nil
				continue
			}
			fi = append(fi, f)
		case w, ok := <-warns:
			if !ok {
				warns = nil
				continue
			}
			wn = append(wn, w)
		}
	}
	return fi, wn
}

func TestWalk_BasicDiscovery(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a\n")
	writeFile(t, root, "sub/b.py", "def f():\n    pass\n")
	writeFile(t, root, "vendor/ignored.go", "package ignored\n")

	files, warns := collect(t, root, Options{RespectIgnoreFiles: true})
	require.Empty(t, warns)

	byRel := map[string]FileInfo{}
	for _, f := range files {
		byRel[f.RelPath] = f
	}
	require.Contains(t, byRel, "a.go")
	require.Contains(t, byRel, "sub/b.py")
	require.NotContains(t, byRel, "vendor/ignored.go")
	require.Equal(t, "go", byRel["a.go"].Language)
	require.Equal(t, "python", byRel["sub/b.py"].Language)
}

func TestWalk_MaxFileSizeBoundary(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "exact.txt", strings.Repeat("x", 10))
	writeFile(t, root, "over.txt", strings.Repeat("x", 11))

	files, _ := collect(t, root, Options{MaxFileSize: 10})
	var names []string
	for _, f := range files {
		names = append(names, f.RelPath)
	}
	require.Contains(t, names, "exact.txt")
	require.NotContains(t, names, "over.txt")
}

func TestWalk_IncludeExcludePatterns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep/a.go", "package a\n")
	writeFile(t, root, "skip/b.go", "package b\n")
	writeFile(t, root, "keep/c_test.go", "package a\n")

	files, _ := collect(t, root, Options{
		IncludePatterns: []string{"keep/"},
		ExcludePatterns: []string{"_test.go"},
	})
	var names []string
	for _, f := range files {
		names = append(names, f.RelPath)
	}
	require.ElementsMatch(t, []string{"keep/a.go"}, names)
}

func TestWalk_GitignoreRespected(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "generated/\n*.log\n")
	writeFile(t, root, "generated/x.go", "package x\n")
	writeFile(t, root, "app.log", "boom")
	writeFile(t, root, "main.go", "package main\n")

	files, _ := collect(t, root, Options{RespectIgnoreFiles: true})
	var names []string
	for _, f := range files {
		names = append(names, f.RelPath)
	}
	require.Equal(t, []string{".gitignore", "main.go"}, names)
}

func TestWalk_BinaryFileSkipped(t *testing.T) {
	root := t.TempDir()
	binary := make([]byte, 256)
	for i := range binary {
		binary[i] = byte(i % 256)
	}
	writeFile(t, root, "data.bin", string(binary))
	writeFile(t, root, "readable.txt", "hello world\n")

	files, warns := collect(t, root, Options{})
	require.Empty(t, warns)

	var names []string
	for _, f := range files {
		names = append(names, f.RelPath)
	}
	require.NotContains(t, names, "data.bin")
	require.Contains(t, names, "readable.txt")
}

func TestIsBinary_ThresholdBoundary(t *testing.T) {
	// Exactly 30% non-printable bytes must still be text (strict >).
	data := make([]byte, 10)
	for i := range data {
		data[i] = 'a'
	}
	for i := 0; i < 3; i++ {
		data[i] = 0x01
	}
	require.False(t, isBinary(data), "30%% non-printable must be text")

	data[3] = 0x01 // now 4/10 = 40%
	require.True(t, isBinary(data), "40%% non-printable must be binary")
}

func TestDetectLanguage_Unknown(t *testing.T) {
	require.Equal(t, "unknown", DetectLanguage("file.xyz123"))
	require.Equal(t, "go", DetectLanguage("main.go"))
}

func TestWalk_RootMustExist(t *testing.T) {
	_, _, err := Walk(filepath.Join(t.TempDir(), "missing"), Options{}, nil)
	require.Error(t, err)
}

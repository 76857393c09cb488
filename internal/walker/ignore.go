package walker

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// defaultIgnorePatterns are in effect whenever ignore files are respected,
// even when a repo has no .gitignore of its own.
var defaultIgnorePatterns = []string{
	".git",
	".svn",
	".hg",
	"node_modules",
	"vendor",
	"__pycache__",
	".idea",
	".vscode",
	"dist",
	"build",
	"target",
	".cache",
}

// loadIgnoreMatcher builds a combined ignore matcher for root from
// .gitignore/.ignore files found under it. Patterns are collected root
// first, then nested directories' files in the order discovered, so a
// nested file's negation (!pattern) can override a higher-level ignore.
// Nested patterns are prefixed with their directory by scopeToDir so they
// apply within that subtree; this is a conservative approximation, not a
// full gitignore engine.
func loadIgnoreMatcher(root string) gitignore.IgnoreParser {
	patterns := append([]string{}, defaultIgnorePatterns...)

	for _, name := range []string{".gitignore", ".ignore"} {
		patterns = append(patterns, readIgnoreFile(filepath.Join(root, name))...)
	}

	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() || path == root {
			return nil
		}
		if d.Name() == ".git" {
			return filepath.SkipDir
		}
		for _, name := range []string{".gitignore", ".ignore"} {
			p := filepath.Join(path, name)
			if lines := readIgnoreFile(p); len(lines) > 0 {
				rel, _ := filepath.Rel(root, path)
				patterns = append(patterns, scopeToDir(lines, filepath.ToSlash(rel))...)
			}
		}
		return nil
	})

	return gitignore.CompileIgnoreLines(patterns...)
}

// scopeToDir prefixes each pattern with dir so it only matches within the
// subtree the ignore file lives in: anchored patterns ("/x") become
// "/dir/x", others become "dir/**/x" and "dir/x". A leading "!" is kept in
// front of the scoped pattern.
func scopeToDir(lines []string, dir string) []string {
	if dir == "." || dir == "" {
		return lines
	}
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		neg := ""
		if strings.HasPrefix(l, "!") {
			neg, l = "!", l[1:]
		}
		if strings.HasPrefix(l, "/") {
			out = append(out, neg+"/"+dir+l)
			continue
		}
		out = append(out, neg+dir+"/**/"+l, neg+dir+"/"+l)
	}
	return out
}

func readIgnoreFile(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

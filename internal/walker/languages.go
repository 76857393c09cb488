package walker

import "strings"

// languageByExt maps a lowercase file extension (without the leading dot) to
// a detected language label. Extensions with a registered tree-sitter
// grammar in internal/chunker/languages also appear here so the walker and
// the chunker agree on language naming.
var languageByExt = map[string]string{
	"go":     "go",
	"py":     "python",
	"pyi":    "python",
	"js":     "javascript",
	"jsx":    "javascript",
	"mjs":    "javascript",
	"cjs":    "javascript",
	"ts":     "typescript",
	"tsx":    "typescript",
	"java":   "java",
	"kt":     "kotlin",
	"kts":    "kotlin",
	"rb":     "ruby",
	"rs":     "rust",
	"c":      "c",
	"h":      "c",
	"cc":     "cpp",
	"cpp":    "cpp",
	"cxx":    "cpp",
	"hpp":    "cpp",
	"hh":     "cpp",
	"cs":     "csharp",
	"php":    "php",
	"swift":  "swift",
	"scala":  "scala",
	"m":      "objective-c",
	"mm":     "objective-c",
	"sh":     "shell",
	"bash":   "shell",
	"zsh":    "shell",
	"pl":     "perl",
	"lua":    "lua",
	"r":      "r",
	"jl":     "julia",
	"ex":     "elixir",
	"exs":    "elixir",
	"erl":    "erlang",
	"hs":     "haskell",
	"clj":    "clojure",
	"cljs":   "clojure",
	"dart":   "dart",
	"sql":    "sql",
	"html":   "html",
	"htm":    "html",
	"css":    "css",
	"scss":   "scss",
	"less":   "less",
	"json":   "json",
	"yaml":   "yaml",
	"yml":    "yaml",
	"toml":   "toml",
	"xml":    "xml",
	"md":     "markdown",
	"proto":  "protobuf",
	"vue":    "vue",
	"svelte": "svelte",
	"zig":    "zig",
}

// DetectLanguage returns the language label for a filename, or "unknown" if
// its extension has no entry.
func DetectLanguage(name string) string {
	ext := extOf(name)
	if lang, ok := languageByExt[ext]; ok {
		return lang
	}
	return "unknown"
}

func extOf(name string) string {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 || idx == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[idx+1:])
}

// Package cmd implements the codesearch CLI: a small cobra front end over
// the internal/coordinator pipeline, mirroring the teacher's own cmd/
// layout (root command plus one file per subcommand).
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"codesearch/internal/walker"
)

var (
	flagConfig     string
	flagOllama     string
	flagModel      string
	flagDim        int
	flagVectorDB   string
	flagLexicalDir string
)

var rootCmd = &cobra.Command{
	Use:   "codesearch",
	Short: "Hybrid semantic + lexical code search",
}

// Execute runs the root command, exiting non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file path (default ./codesearch.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagOllama, "ollama", "", "ollama base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagModel, "model", "", "embedding model (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagDim, "dim", 0, "embedding dimension (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagVectorDB, "vector-db", "", "vector store path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagLexicalDir, "lexical-dir", "", "lexical index directory (overrides config)")
}

// flagOverrides captures persistent-flag values that take precedence over
// whatever internal/config.Load read from disk, per SPEC_FULL's ambient
// stack note: "cobra flags in cmd/ override loaded values."
type flagOverrides struct {
	ollama      string
	model       string
	dim         int
	vectorDB    string
	lexicalDir  string
	includeGlob []string
	excludeGlob []string
	maxFileSize int64
}

func rootOverrides() flagOverrides {
	return flagOverrides{
		ollama:     flagOllama,
		model:      flagModel,
		dim:        flagDim,
		vectorDB:   flagVectorDB,
		lexicalDir: flagLexicalDir,
	}
}

func (o flagOverrides) apply(cfg *configT) {
	if o.ollama != "" {
		cfg.Embedding.BaseURL = o.ollama
	}
	if o.model != "" {
		cfg.Embedding.Model = o.model
	}
	if o.dim != 0 {
		cfg.Embedding.Dim = o.dim
	}
	if o.vectorDB != "" {
		cfg.Storage.VectorDBPath = o.vectorDB
	}
	if o.lexicalDir != "" {
		cfg.Storage.LexicalIndexDir = o.lexicalDir
	}
}

func (o flagOverrides) walkerOptions(cfg *configT) walker.Options {
	opts := walker.Options{
		IncludePatterns:    o.includeGlob,
		ExcludePatterns:    o.excludeGlob,
		MaxFileSize:        cfg.Walk.MaxFileSizeBytes,
		RespectIgnoreFiles: cfg.Walk.RespectIgnoreFilesOrDefault(),
	}
	if len(opts.IncludePatterns) == 0 {
		opts.IncludePatterns = cfg.Walk.IncludePatterns
	}
	if len(opts.ExcludePatterns) == 0 {
		opts.ExcludePatterns = cfg.Walk.ExcludePatterns
	}
	if o.maxFileSize != 0 {
		opts.MaxFileSize = o.maxFileSize
	}
	return opts
}

func configPath() string {
	if flagConfig != "" {
		return flagConfig
	}
	return defaultConfigPath()
}

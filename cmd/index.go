package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"codesearch/internal/coordinator"
)

var (
	flagIncludePatterns []string
	flagExcludePatterns []string
	flagMaxFileSize     int64
)

var indexCmd = &cobra.Command{
	Use:   "index <path>",
	Short: "Index a codebase: index_codebase(path, ...) of spec §6",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().StringSliceVar(&flagIncludePatterns, "include", nil, "include substring patterns (disjunctive)")
	indexCmd.Flags().StringSliceVar(&flagExcludePatterns, "exclude", nil, "exclude substring patterns (disjunctive, wins on conflict)")
	indexCmd.Flags().Int64Var(&flagMaxFileSize, "max-file-size", 0, "max file size in bytes (default from config)")
	rootCmd.AddCommand(indexCmd)
}

var (
	summaryStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#6EE7B7"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#A1A1AA"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
)

func runIndex(cmd *cobra.Command, args []string) error {
	root, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	overrides := rootOverrides()
	overrides.includeGlob = flagIncludePatterns
	overrides.excludeGlob = flagExcludePatterns
	overrides.maxFileSize = flagMaxFileSize

	pl, err := buildPipeline(configPath(), overrides)
	if err != nil {
		return err
	}
	defer pl.Close()

	fmt.Printf("Indexing %s...\n", root)
	start := time.Now()

	result, err := pl.Coordinator.Index(context.Background(), root, coordinator.IndexOptions{
		Progress: func(percent int, message string) {
			fmt.Printf("  [%3d%%] %s\n", percent, message)
		},
	})
	elapsed := time.Since(start)

	fmt.Println(summaryStyle.Render(fmt.Sprintf("\nDone in %s (mode: %s)", elapsed.Round(time.Millisecond), result.Mode)))
	fmt.Println(labelStyle.Render(fmt.Sprintf("  files indexed:      %d", result.FilesIndexed)))
	fmt.Println(labelStyle.Render(fmt.Sprintf("  chunks created:     %d", result.ChunksCreated)))
	fmt.Println(labelStyle.Render(fmt.Sprintf("  embeddings created: %d", result.EmbeddingsGenerated)))
	for _, w := range result.Errors {
		fmt.Println(warnStyle.Render("  warning: " + w))
	}

	return err
}

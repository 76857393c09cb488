package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats [path]",
	Short: "Report indexed chunk/file counts: get_statistics of spec §6",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	pl, err := buildPipeline(configPath(), rootOverrides())
	if err != nil {
		return err
	}
	defer pl.Close()

	project := ""
	if len(args) == 1 {
		project, err = filepath.Abs(args[0])
		if err != nil {
			return err
		}
	}

	stats, err := pl.Coordinator.GetStatistics(context.Background(), project)
	if err != nil {
		return err
	}

	fmt.Printf("total files:  %d\n", stats.DistinctFiles)
	fmt.Printf("total chunks: %d\n", stats.ChunkCount)
	if len(stats.PerLanguageCounts) > 0 {
		fmt.Println("by language:")
		langs := make([]string, 0, len(stats.PerLanguageCounts))
		for l := range stats.PerLanguageCounts {
			langs = append(langs, l)
		}
		sort.Strings(langs)
		for _, l := range langs {
			fmt.Printf("  %-12s %d\n", l, stats.PerLanguageCounts[l])
		}
	}
	return nil
}

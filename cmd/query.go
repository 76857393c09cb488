package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"codesearch/internal/coordinator"
	"codesearch/internal/types"
)

var (
	flagQueryK           int
	flagQueryMinScore    float64
	flagQueryNoHybrid    bool
	flagQueryProject     string
	flagQueryExtensions  []string
	flagQueryLanguages   []string
	flagQueryPathMatches []string
)

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Hybrid query: query_codebase / search_by_filters of spec §6",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().IntVar(&flagQueryK, "limit", 10, "maximum results")
	queryCmd.Flags().Float64Var(&flagQueryMinScore, "min-score", 0.7, "minimum dense score before the ladder of spec §4.7.4 kicks in")
	queryCmd.Flags().BoolVar(&flagQueryNoHybrid, "no-hybrid", false, "disable lexical fusion, dense-only search")
	queryCmd.Flags().StringVar(&flagQueryProject, "project", "", "restrict to one indexed project root")
	queryCmd.Flags().StringSliceVar(&flagQueryExtensions, "ext", nil, "restrict to file extensions (search_by_filters)")
	queryCmd.Flags().StringSliceVar(&flagQueryLanguages, "lang", nil, "restrict to languages (search_by_filters)")
	queryCmd.Flags().StringSliceVar(&flagQueryPathMatches, "path", nil, "restrict to path substrings (search_by_filters)")
	rootCmd.AddCommand(queryCmd)
}

var (
	hitPathStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#60A5FA"))
	hitScoreStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A1A1AA"))
)

func runQuery(cmd *cobra.Command, args []string) error {
	pl, err := buildPipeline(configPath(), rootOverrides())
	if err != nil {
		return err
	}
	defer pl.Close()

	minScore := flagQueryMinScore
	results, err := pl.Coordinator.Query(context.Background(), args[0], coordinator.QueryOptions{
		K:        flagQueryK,
		Hybrid:   !flagQueryNoHybrid,
		MinScore: &minScore,
		Filter: types.Filter{
			Project:      flagQueryProject,
			Extensions:   flagQueryExtensions,
			Languages:    flagQueryLanguages,
			PathPatterns: flagQueryPathMatches,
		},
	})
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Println("no results")
		return nil
	}

	for i, r := range results {
		fmt.Println(hitPathStyle.Render(fmt.Sprintf("%d. %s:%d-%d", i+1, r.FilePath, r.StartLine, r.EndLine)))
		fmt.Println(hitScoreStyle.Render(fmt.Sprintf("   combined=%.4f dense=%.4f lexical=%.4f lang=%s",
			r.CombinedScore, r.VectorScore, r.KeywordScore, r.Language)))
		fmt.Println(strings.TrimRight(indent(r.Content, "   "), "\n"))
		fmt.Println()
	}
	return nil
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

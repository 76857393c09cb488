// cmd/serve.go is the JSON-RPC-over-stdio tool surface of spec §6 — out of
// core scope per spec §1 ("the request/response tool transport... contain
// no novel engineering relative to it"). It is a thin mcp-go adapter
// exposing exactly the five contract tools, each a direct call into
// internal/coordinator.Coordinator, grounded on the teacher's own
// cmd/mcp.go wiring (mcpserver.NewMCPServer + s.AddTool + ServeStdio) but
// generalized from the teacher's four ad-hoc tools to the spec's five.
package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"codesearch/internal/coordinator"
	"codesearch/internal/types"
	"codesearch/internal/walker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start an MCP stdio server exposing index_codebase/query_codebase/search_by_filters/get_statistics/clear_index",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	pl, err := buildPipeline(configPath(), rootOverrides())
	if err != nil {
		return err
	}
	defer pl.Close()

	s := mcpserver.NewMCPServer("codesearch", "1.0.0", mcpserver.WithToolCapabilities(false))

	s.AddTool(indexCodebaseTool(), makeIndexCodebaseHandler(pl.Coordinator))
	s.AddTool(queryCodebaseTool(), makeQueryCodebaseHandler(pl.Coordinator))
	s.AddTool(searchByFiltersTool(), makeSearchByFiltersHandler(pl.Coordinator))
	s.AddTool(getStatisticsTool(), makeGetStatisticsHandler(pl.Coordinator))
	s.AddTool(clearIndexTool(), makeClearIndexHandler(pl.Coordinator))

	return mcpserver.ServeStdio(s)
}

var readOnlyAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(true),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

var writeAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(false),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

// --- Tool schema builders, exact parameter shapes of spec §6 ---

func indexCodebaseTool() mcp.Tool {
	return mcp.NewTool("index_codebase",
		mcp.WithDescription("Index a codebase for hybrid semantic + lexical retrieval."),
		mcp.WithToolAnnotation(writeAnnotation),
		mcp.WithString("path", mcp.Required(), mcp.Description("Root directory to index")),
		mcp.WithArray("include_patterns", mcp.Description("Substring patterns a relative path must contain (disjunctive)")),
		mcp.WithArray("exclude_patterns", mcp.Description("Substring patterns that exclude a relative path (disjunctive, wins on conflict)")),
		mcp.WithNumber("max_file_size", mcp.Description("Maximum file size in bytes")),
	)
}

func queryCodebaseTool() mcp.Tool {
	return mcp.NewTool("query_codebase",
		mcp.WithDescription("Hybrid dense + lexical similarity query over an indexed codebase, fused by reciprocal rank fusion."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("query", mcp.Required(), mcp.Description("Query text")),
		mcp.WithNumber("limit", mcp.Description("Maximum results (default 10)")),
		mcp.WithNumber("min_score", mcp.Description("Minimum dense score before the min-score ladder (default 0.7)")),
		mcp.WithBoolean("hybrid", mcp.Description("Fuse lexical (BM25) results in (default true)")),
		mcp.WithString("project", mcp.Description("Restrict to one indexed project root")),
	)
}

func searchByFiltersTool() mcp.Tool {
	return mcp.NewTool("search_by_filters",
		mcp.WithDescription("Hybrid query narrowed by file extension, language, and path-substring filters."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("query", mcp.Required(), mcp.Description("Query text")),
		mcp.WithNumber("limit", mcp.Description("Maximum results (default 10)")),
		mcp.WithNumber("min_score", mcp.Description("Minimum dense score before the min-score ladder (default 0.7)")),
		mcp.WithArray("file_extensions", mcp.Description("Restrict to these extensions, without the leading dot")),
		mcp.WithArray("languages", mcp.Description("Restrict to these detected languages")),
		mcp.WithArray("path_patterns", mcp.Description("Restrict to relative paths containing any of these substrings")),
		mcp.WithString("project", mcp.Description("Restrict to one indexed project root")),
	)
}

func getStatisticsTool() mcp.Tool {
	return mcp.NewTool("get_statistics",
		mcp.WithDescription("Report indexed file/chunk counts and the per-language breakdown for a project."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("project", mcp.Description("Project root to report on; defaults to the current directory")),
	)
}

func clearIndexTool() mcp.Tool {
	return mcp.NewTool("clear_index",
		mcp.WithDescription("Remove every indexed chunk for a project from both stores and its hash-cache entry."),
		mcp.WithToolAnnotation(writeAnnotation),
		mcp.WithString("project", mcp.Description("Project root to clear; defaults to the current directory")),
	)
}

// --- Handler factories ---

func makeIndexCodebaseHandler(co *coordinator.Coordinator) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path := req.GetString("path", "")
		if path == "" {
			return mcp.NewToolResultError("path is required"), nil
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("resolve path: %v", err)), nil
		}

		opts := coordinator.IndexOptions{}
		include := argStringSlice(req, "include_patterns")
		exclude := argStringSlice(req, "exclude_patterns")
		maxSize := int64(req.GetFloat("max_file_size", 0))
		if len(include) > 0 || len(exclude) > 0 || maxSize > 0 {
			opts.WalkerOverride = &walker.Options{
				IncludePatterns:    include,
				ExcludePatterns:    exclude,
				MaxFileSize:        maxSize,
				RespectIgnoreFiles: true,
			}
		}
		result, err := co.Index(ctx, abs, opts)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("index failed: %v", err)), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf(
			"mode=%s files_indexed=%d chunks_created=%d embeddings_generated=%d duration_ms=%d errors=%d",
			result.Mode, result.FilesIndexed, result.ChunksCreated, result.EmbeddingsGenerated, result.DurationMS, len(result.Errors),
		)), nil
	}
}

func makeQueryCodebaseHandler(co *coordinator.Coordinator) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := req.GetString("query", "")
		if query == "" {
			return mcp.NewToolResultError("query is required"), nil
		}
		limit := req.GetInt("limit", 10)
		minScore := req.GetFloat("min_score", 0.7)
		hybrid := req.GetBool("hybrid", true)
		project := req.GetString("project", "")

		results, err := co.Query(ctx, query, coordinator.QueryOptions{
			K:        limit,
			Hybrid:   hybrid,
			MinScore: &minScore,
			Filter:   types.Filter{Project: project},
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
		}
		return mcp.NewToolResultText(formatSearchResults(query, results)), nil
	}
}

func makeSearchByFiltersHandler(co *coordinator.Coordinator) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := req.GetString("query", "")
		if query == "" {
			return mcp.NewToolResultError("query is required"), nil
		}
		limit := req.GetInt("limit", 10)
		minScore := req.GetFloat("min_score", 0.7)
		project := req.GetString("project", "")

		filter := types.Filter{
			Project:      project,
			Extensions:   argStringSlice(req, "file_extensions"),
			Languages:    argStringSlice(req, "languages"),
			PathPatterns: argStringSlice(req, "path_patterns"),
		}

		results, err := co.Query(ctx, query, coordinator.QueryOptions{
			K:        limit,
			Hybrid:   true,
			MinScore: &minScore,
			Filter:   filter,
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
		}
		return mcp.NewToolResultText(formatSearchResults(query, results)), nil
	}
}

func makeGetStatisticsHandler(co *coordinator.Coordinator) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		project := req.GetString("project", "")
		if project == "" {
			wd, err := filepath.Abs(".")
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("resolve cwd: %v", err)), nil
			}
			project = wd
		}

		stats, err := co.GetStatistics(ctx, project)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("get_statistics failed: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf(
			"total_files=%d total_chunks=%d languages=%v", stats.DistinctFiles, stats.ChunkCount, stats.PerLanguageCounts,
		)), nil
	}
}

func makeClearIndexHandler(co *coordinator.Coordinator) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		project := req.GetString("project", "")
		if project == "" {
			wd, err := filepath.Abs(".")
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("resolve cwd: %v", err)), nil
			}
			project = wd
		}

		if err := co.ClearIndex(ctx, project); err != nil {
			return mcp.NewToolResultText(fmt.Sprintf(`{"success":false,"message":%q}`, err.Error())), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf(`{"success":true,"message":"cleared %s"}`, project)), nil
	}
}

// --- Formatting / parsing helpers ---

func formatSearchResults(query string, results []types.SearchResult) string {
	if len(results) == 0 {
		return fmt.Sprintf("no results for query: %q", query)
	}
	var out string
	for i, r := range results {
		out += fmt.Sprintf("%d. %s:%d-%d (lang=%s combined=%.4f dense=%.4f lexical=%.4f)\n",
			i+1, r.FilePath, r.StartLine, r.EndLine, r.Language, r.CombinedScore, r.VectorScore, r.KeywordScore)
		out += r.Content + "\n\n"
	}
	return out
}

// argStringSlice pulls a JSON array-of-strings argument out of the raw
// request arguments, since this mcp-go version has no typed accessor for
// array parameters (only scalar Get* helpers).
func argStringSlice(req mcp.CallToolRequest, key string) []string {
	raw, ok := req.GetArguments()[key]
	if !ok {
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, v := range items {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

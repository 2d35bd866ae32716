package cmd

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/devinsight/devrag/internal/index"
	"github.com/devinsight/devrag/internal/ui"
)

// queryOptions holds CLI flags for query.
type queryOptions struct {
	limit  int
	format string // "text", "json"
}

// newQueryCmd creates the query command.
func newQueryCmd() *cobra.Command {
	var opts queryOptions

	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Search the index for similar chunks",
		Long: `Embed the query text with the configured embedder and return the
most similar indexed chunks.

The index must have been built with the same embedder configuration;
querying across embedding schemes fails rather than returning
meaningless scores.

Examples:
  devrag query "where is authentication handled"
  devrag query "retry logic" --limit 5
  devrag query "config parsing" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", index.DefaultTopK, "Maximum number of results")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runQuery(cmd *cobra.Command, text string, opts queryOptions) error {
	cfg, root, err := loadConfig()
	if err != nil {
		return err
	}

	embedder, err := newEmbedder(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() { _ = embedder.Close() }()

	metrics := openMetrics(cfg, root)
	defer func() { _ = metrics.Close() }()

	svc, err := index.NewService(cfg.IndexDir(root), embedder, metrics)
	if err != nil {
		return err
	}

	results, err := svc.Query(cmd.Context(), text, opts.limit)
	if err != nil {
		return err
	}

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	ui.NewPrinter(cmd.OutOrStdout(), noColor).PrintResults(results)
	return nil
}

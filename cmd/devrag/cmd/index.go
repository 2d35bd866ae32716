package cmd

import (
	"github.com/spf13/cobra"

	"github.com/devinsight/devrag/internal/index"
	"github.com/devinsight/devrag/internal/ui"
)

// newIndexCmd creates the index command.
func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build the retrieval index",
		Long: `Walk the repository, chunk its text content and recent commit
history, embed every chunk, and publish an index snapshot.

The snapshot replaces any previous one atomically: readers see either
the old index or the new one, never a half-written mix.

Examples:
  devrag index
  devrag index -C ~/src/myproject
  DEVRAG_EMBEDDER=ollama devrag index`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndex(cmd)
		},
	}
	return cmd
}

func runIndex(cmd *cobra.Command) error {
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

	builder := index.NewBuilder(cfg, root, embedder, metrics)
	summary, err := builder.Build(cmd.Context())
	if err != nil {
		return err
	}

	ui.NewPrinter(cmd.OutOrStdout(), noColor).PrintBuildSummary(summary)
	return nil
}

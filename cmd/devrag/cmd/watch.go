package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/devinsight/devrag/internal/index"
	"github.com/devinsight/devrag/internal/ui"
	"github.com/devinsight/devrag/internal/watcher"
)

// newWatchCmd creates the watch command.
func newWatchCmd() *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rebuild the index when the repository changes",
		Long: `Build the index, then watch the repository and rebuild after file
activity settles. Bursts of changes coalesce into a single rebuild.

Runs until interrupted.

Examples:
  devrag watch
  devrag watch --debounce 5s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, debounce)
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", watcher.DefaultDebounce,
		"Quiet window before a rebuild triggers")
	return cmd
}

func runWatch(cmd *cobra.Command, debounce time.Duration) error {
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

	printer := ui.NewPrinter(cmd.OutOrStdout(), noColor)
	builder := index.NewBuilder(cfg, root, embedder, metrics)

	summary, err := builder.Build(cmd.Context())
	if err != nil {
		return err
	}
	printer.PrintBuildSummary(summary)

	w, err := watcher.New(root, debounce)
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	if err := w.Start(cmd.Context()); err != nil {
		return err
	}
	printer.Successf("watching %s", root)

	for {
		select {
		case <-cmd.Context().Done():
			return nil
		case <-w.Triggers():
			summary, err := builder.Build(cmd.Context())
			if err != nil {
				// A failed rebuild leaves the previous snapshot intact.
				printer.Errorf("rebuild failed: %v", err)
				continue
			}
			printer.PrintBuildSummary(summary)
		}
	}
}

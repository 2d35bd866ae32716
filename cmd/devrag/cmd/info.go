package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/devinsight/devrag/internal/index"
	"github.com/devinsight/devrag/internal/store"
	"github.com/devinsight/devrag/internal/telemetry"
	"github.com/devinsight/devrag/internal/ui"
)

// newInfoCmd creates the info command.
func newInfoCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show index status",
		Long: `Report the current index snapshot: which embedder built it, its
dimension, how many chunks it holds, and when it was built.

Reads only the snapshot metadata, so it works even when the configured
embedder differs from the one the index was built with.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInfo(cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func runInfo(cmd *cobra.Command, jsonOutput bool) error {
	cfg, root, err := loadConfig()
	if err != nil {
		return err
	}

	meta, err := store.ReadMetadata(cfg.IndexDir(root))
	if err != nil {
		return err
	}

	desc := index.Description{
		EmbedderID: meta.EmbedderID,
		Dimension:  meta.Dimension,
		ChunkCount: meta.ChunkCount,
		BuiltAt:    meta.BuiltAt,
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(desc)
	}

	printer := ui.NewPrinter(cmd.OutOrStdout(), noColor)
	printer.PrintDescription(desc)

	if cfg.Telemetry.Enabled {
		ms, err := telemetry.OpenSQLiteStore(cfg.MetricsDBPath(root))
		if err != nil {
			printer.Warnf("metrics unavailable: %v", err)
			return nil
		}
		defer func() { _ = ms.Close() }()

		snap, err := ms.LoadSnapshot()
		if err != nil {
			printer.Warnf("metrics unavailable: %v", err)
			return nil
		}
		printer.PrintMetrics(snap)
	}
	return nil
}

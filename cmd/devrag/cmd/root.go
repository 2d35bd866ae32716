// Package cmd provides the CLI commands for devrag.
package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/devinsight/devrag/internal/config"
	"github.com/devinsight/devrag/internal/embed"
	"github.com/devinsight/devrag/internal/logging"
	"github.com/devinsight/devrag/internal/telemetry"
	"github.com/devinsight/devrag/internal/ui"
	"github.com/devinsight/devrag/pkg/version"
)

var (
	rootDir string
	noColor bool
	debug   bool

	loggingCleanup func()
)

// NewRootCmd creates the root command for the devrag CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devrag",
		Short: "Local retrieval index over a repository",
		Long: `devrag builds a searchable vector index over a repository's files
and recent commit history, then answers similarity queries against it.

Everything runs locally. The default embedder needs no network or model
download; Ollama and OpenAI backends are available for semantic search.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("devrag version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&rootDir, "root", "C", ".", "Repository root to operate on")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable styled output")
	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRun = func(*cobra.Command, []string) {
		if loggingCleanup != nil {
			loggingCleanup()
		}
	}

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newQueryCmd())
	cmd.AddCommand(newInfoCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the CLI with signal-aware cancellation.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		ui.NewPrinter(os.Stderr, noColor).Errorf("error: %v", err)
		return err
	}
	return nil
}

func setupLogging(*cobra.Command, []string) error {
	logCfg := logging.DefaultConfig()
	if debug {
		logCfg = logging.DebugConfig()
	}

	_, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		// Logging failures never block the command itself.
		slog.Warn("logging setup failed", slog.String("error", err.Error()))
		return nil
	}
	loggingCleanup = cleanup
	return nil
}

// projectRoot resolves the --root flag to an absolute path.
func projectRoot() (string, error) {
	return filepath.Abs(rootDir)
}

// loadConfig resolves configuration for the selected root.
func loadConfig() (*config.Config, string, error) {
	root, err := projectRoot()
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, "", err
	}
	return cfg, root, nil
}

// newEmbedder builds the configured embedder.
func newEmbedder(ctx context.Context, cfg *config.Config) (embed.Embedder, error) {
	return embed.New(ctx, cfg.Embeddings)
}

// openMetrics opens the telemetry collector. Disabled telemetry yields
// a nil collector, which is a valid no-op.
func openMetrics(cfg *config.Config, root string) *telemetry.Metrics {
	if !cfg.Telemetry.Enabled {
		return nil
	}
	store, err := telemetry.OpenSQLiteStore(cfg.MetricsDBPath(root))
	if err != nil {
		slog.Warn("metrics store unavailable", slog.String("error", err.Error()))
		return telemetry.NewMetrics(nil)
	}
	return telemetry.NewMetrics(store)
}

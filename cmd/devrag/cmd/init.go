package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/devinsight/devrag/configs"
	"github.com/devinsight/devrag/internal/config"
	"github.com/devinsight/devrag/internal/ui"
)

// newInitCmd creates the init command.
func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write an annotated config file",
		Long: `Write an annotated .devrag.yaml to the repository root. The file
documents every setting with its default value; devrag works without it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config file")
	return cmd
}

func runInit(cmd *cobra.Command, force bool) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}

	path := filepath.Join(root, config.ConfigFileName)
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := os.WriteFile(path, []byte(configs.ProjectConfigTemplate), 0o644); err != nil {
		return err
	}

	ui.NewPrinter(cmd.OutOrStdout(), noColor).Successf("wrote %s", path)
	return nil
}

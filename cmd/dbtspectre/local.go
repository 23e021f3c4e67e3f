package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ppiankov/dbtspectre/internal/integration"
	"github.com/ppiankov/dbtspectre/internal/platform/local"
	"github.com/ppiankov/dbtspectre/internal/reporter"
)

// NewLocalCmd creates the local command
func NewLocalCmd() *cobra.Command {
	var (
		diffPath   string
		repoRoot   string
		baseBranch string
		outputDir  string
		format     string
	)

	cmd := &cobra.Command{
		Use:   "local",
		Short: "Preview the impact comment for a local diff",
		Long: `Analyzes the dbt models touched by a unified diff (for example the
output of git diff main...HEAD) and prints the comment that would be
posted. Nothing is written to the catalog or a hosting platform.`,
		Example: `  git diff main...HEAD | dbtspectre local --diff -
  dbtspectre local --diff changes.patch --output ./out --format sarif`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if diffPath == "" {
				return fmt.Errorf("--diff is required")
			}
			switch format {
			case reporter.FormatJSON, reporter.FormatSARIF, reporter.FormatText:
			default:
				return fmt.Errorf("invalid --format value %q (expected json, sarif, or text)", format)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}

			var host *local.Workspace
			if diffPath == "-" {
				patch, readErr := io.ReadAll(cmd.InOrStdin())
				if readErr != nil {
					return fmt.Errorf("failed to read diff from stdin: %w", readErr)
				}
				host, err = local.New(patch, repoRoot, baseBranch, logger)
			} else {
				host, err = local.Open(diffPath, repoRoot, baseBranch, logger)
			}
			if err != nil {
				return err
			}

			run := integration.NewLocal(integration.LocalOptions{
				Config:    cfg,
				Host:      host,
				Catalog:   newCatalog(cfg, logger),
				OutputDir: outputDir,
				Format:    format,
				Stdout:    cmd.OutOrStdout(),
				Version:   version,
				Logger:    logger,
			})
			return finish(run.Run(cmd.Context()), cfg, logger)
		},
	}

	cmd.Flags().StringVar(&diffPath, "diff", "", "Unified diff to analyze, - reads stdin")
	cmd.Flags().StringVar(&repoRoot, "repo", ".", "Repository checkout the diff applies to")
	cmd.Flags().StringVar(&baseBranch, "base-branch", "main", "Target branch, selects the dbt environment")
	cmd.Flags().StringVar(&outputDir, "output", "", "Write comment.md and the report here")
	cmd.Flags().StringVar(&format, "format", reporter.FormatJSON, "Report format written to --output: json, sarif, or text")

	return cmd
}

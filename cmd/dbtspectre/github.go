package main

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/dbtspectre/internal/integration"
	"github.com/ppiankov/dbtspectre/internal/platform/github"
)

// NewGitHubCmd creates the github command, run from a GitHub Actions
// pull_request workflow.
func NewGitHubCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "github",
		Short: "Comment downstream impact on the pull request of this workflow run",
		Long: `Reads the pull_request event of the current GitHub Actions run,
analyzes the changed dbt models and keeps a single impact comment on the
pull request up to date. On merge, the pull request is linked as a
resource on every impacted asset.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			if cfg.GitHubToken == "" {
				return errors.New("GITHUB_TOKEN is required")
			}

			env, err := github.ReadEnv()
			if err != nil {
				return err
			}
			event, err := github.LoadEvent(env.EventPath)
			if err != nil {
				return err
			}

			host, err := github.New(cfg.GitHubToken, env.APIURL, event, nil, logger)
			if err != nil {
				return err
			}
			logger.Debug("github run",
				zap.String("repository", host.FullName()),
				zap.String("action", event.GetAction()))

			run := integration.NewGitHub(integration.GitHubOptions{
				Config:     cfg,
				Host:       host,
				Catalog:    newCatalog(cfg, logger),
				ServerURL:  env.ServerURL,
				Repository: host.FullName(),
				RunURL:     env.RunURL(host.FullName()),
				Logger:     logger,
			})
			return finish(run.Run(cmd.Context()), cfg, logger)
		},
	}
}

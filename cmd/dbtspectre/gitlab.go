package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/ppiankov/dbtspectre/internal/integration"
	"github.com/ppiankov/dbtspectre/internal/platform/gitlab"
)

// NewGitLabCmd creates the gitlab command, run from a merge request pipeline
func NewGitLabCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gitlab",
		Short: "Comment downstream impact on the merge request of this pipeline",
		Long: `Resolves the merge request of the current GitLab CI pipeline,
analyzes the changed dbt models and keeps a single impact note on it.
Pipelines running for a merge commit link the merged request as a
resource on every impacted asset.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			if cfg.GitLabToken == "" {
				return errors.New("GITLAB_TOKEN is required")
			}

			env, err := gitlab.ReadEnv()
			if err != nil {
				return err
			}

			host, err := gitlab.New(cmd.Context(), cfg.GitLabToken, env, nil, logger)
			if err != nil {
				return err
			}

			run := integration.NewGitLab(integration.GitLabOptions{
				Config:      cfg,
				Host:        host,
				Catalog:     newCatalog(cfg, logger),
				ServerURL:   env.ServerURL,
				ProjectID:   env.ProjectID,
				ProjectPath: env.ProjectPath,
				JobURL:      env.JobURL,
				Logger:      logger,
			})
			return finish(run.Run(cmd.Context()), cfg, logger)
		},
	}
}

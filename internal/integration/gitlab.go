package integration

import (
	"context"

	"go.uber.org/zap"

	"github.com/ppiankov/dbtspectre/internal/comment"
	"github.com/ppiankov/dbtspectre/internal/platform"
	"github.com/ppiankov/dbtspectre/internal/reporter"
	"github.com/ppiankov/dbtspectre/internal/telemetry"
	"github.com/ppiankov/dbtspectre/pkg/config"
)

// GitLabOptions wires a GitLab CI run
type GitLabOptions struct {
	Config      *config.Config
	Host        platform.Platform
	Catalog     Catalog
	ServerURL   string // e.g. https://gitlab.com
	ProjectID   string // numeric id, identifies the project bot
	ProjectPath string // group/project
	JobURL      string // link to the CI job, sent with telemetry
	Logger      *zap.Logger
}

// GitLab runs the bot for a merge request pipeline
type GitLab struct {
	runner *runner
}

// NewGitLab creates the GitLab integration
func NewGitLab(opts GitLabOptions) *GitLab {
	cfg := opts.Config
	sink := telemetry.NewCatalogSink(opts.Catalog, "gitlab", "gitlab_job_id", opts.JobURL, cfg.InstanceHost())

	auth := authMessages{
		unauthorized: func() string {
			return reporter.GitLabUnauthorized(cfg.InstanceURL, opts.ServerURL, opts.ProjectPath)
		},
		unreachable: func() string {
			return reporter.GitLabUnreachable(cfg.InstanceURL, opts.ServerURL, opts.ProjectPath)
		},
	}

	return &GitLab{
		runner: newRunner("gitlab", cfg, opts.Host, opts.Catalog, sink, comment.GitLabProjectBot(opts.ProjectID), auth, opts.Logger),
	}
}

// Run implements Integration.
func (g *GitLab) Run(ctx context.Context) error {
	_, err := g.runner.execute(ctx)
	return err
}

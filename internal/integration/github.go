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

// GitHubOptions wires a GitHub Actions run
type GitHubOptions struct {
	Config     *config.Config
	Host       platform.Platform
	Catalog    Catalog
	ServerURL  string // e.g. https://github.com
	Repository string // owner/name
	RunURL     string // link to the workflow run, sent with telemetry
	Logger     *zap.Logger
}

// GitHub runs the bot for a pull_request event
type GitHub struct {
	runner *runner
}

// NewGitHub creates the GitHub integration
func NewGitHub(opts GitHubOptions) *GitHub {
	cfg := opts.Config
	sink := telemetry.NewCatalogSink(opts.Catalog, "github", "github_action_id", opts.RunURL, cfg.InstanceHost())

	auth := authMessages{
		unauthorized: func() string {
			return reporter.GitHubUnauthorized(cfg.InstanceURL, opts.ServerURL, opts.Repository)
		},
		unreachable: func() string {
			return reporter.GitHubUnreachable(cfg.InstanceURL, opts.ServerURL, opts.Repository)
		},
	}

	return &GitHub{
		runner: newRunner("github", cfg, opts.Host, opts.Catalog, sink, comment.GitHubActionsBot(), auth, opts.Logger),
	}
}

// Run implements Integration.
func (g *GitHub) Run(ctx context.Context) error {
	_, err := g.runner.execute(ctx)
	return err
}

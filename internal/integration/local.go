package integration

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/dbtspectre/internal/models"
	"github.com/ppiankov/dbtspectre/internal/platform"
	"github.com/ppiankov/dbtspectre/internal/reporter"
	"github.com/ppiankov/dbtspectre/internal/telemetry"
	"github.com/ppiankov/dbtspectre/pkg/config"
)

// LocalOptions wires a dry run over a local diff
type LocalOptions struct {
	Config    *config.Config
	Host      platform.Platform
	Catalog   Catalog
	OutputDir string    // report files are written here when set
	Format    string    // report format, see reporter.Options
	Stdout    io.Writer // rendered comment and summary; defaults to os.Stdout
	Version   string
	Logger    *zap.Logger
}

// Local previews the impact comment without touching a hosting platform.
// It always runs in dev mode and never sends telemetry.
type Local struct {
	runner *runner
	opts   LocalOptions
}

// NewLocal creates the local integration
func NewLocal(opts LocalOptions) *Local {
	cfg := *opts.Config
	cfg.DevMode = true
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}

	auth := authMessages{
		unauthorized: func() string { return reporter.LocalUnauthorized(cfg.InstanceURL) },
		unreachable:  func() string { return reporter.LocalUnreachable(cfg.InstanceURL) },
	}

	return &Local{
		runner: newRunner("local", &cfg, opts.Host, opts.Catalog, telemetry.NopSink{}, nil, auth, opts.Logger),
		opts:   opts,
	}
}

// Run implements Integration.
func (l *Local) Run(ctx context.Context) error {
	start := time.Now()
	outcome, runErr := l.runner.execute(ctx)
	if outcome == nil {
		return runErr
	}

	if outcome.Comment != "" {
		if _, err := fmt.Fprintf(l.opts.Stdout, "%s\n\n", outcome.Comment); err != nil {
			return fmt.Errorf("failed to print comment: %w", err)
		}
	}
	if runErr != nil {
		return runErr
	}

	report := &models.Report{
		Tool:        "dbtspectre",
		Version:     l.opts.Version,
		Integration: "local",
		GeneratedAt: start.UTC(),
		Duration:    time.Since(start).Round(time.Millisecond).String(),
		Files:       outcome.Results,
		Comment:     outcome.Comment,
	}
	if report.Files == nil {
		report.Files = []models.FileResult{}
	}

	if l.opts.OutputDir == "" {
		return reporter.WriteText(l.opts.Stdout, report)
	}

	return reporter.New(reporter.Options{
		OutputDir: l.opts.OutputDir,
		Format:    l.opts.Format,
		Stdout:    l.opts.Stdout,
	}, l.runner.logger).Generate(report)
}

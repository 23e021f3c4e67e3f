// Package integration orchestrates one CI run against a hosting platform.
package integration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/dbtspectre/internal/analyzer"
	"github.com/ppiankov/dbtspectre/internal/catalog"
	"github.com/ppiankov/dbtspectre/internal/collector"
	"github.com/ppiankov/dbtspectre/internal/comment"
	"github.com/ppiankov/dbtspectre/internal/models"
	"github.com/ppiankov/dbtspectre/internal/platform"
	"github.com/ppiankov/dbtspectre/internal/reporter"
	"github.com/ppiankov/dbtspectre/internal/telemetry"
	"github.com/ppiankov/dbtspectre/pkg/config"
)

const flushTimeout = 5 * time.Second

// ErrAuthFailed means the catalog rejected the token or could not be
// reached. A diagnostic comment has been posted when it is returned.
var ErrAuthFailed = errors.New("catalog authentication failed")

// Integration runs the bot for one CI event
type Integration interface {
	Run(ctx context.Context) error
}

// Catalog is the catalog API surface a run uses
type Catalog interface {
	analyzer.Catalog
	CheckAuth(ctx context.Context) error
	Track(ctx context.Context, event catalog.TrackRequest) error
}

// authMessages renders the diagnostic comments for failed authentication
type authMessages struct {
	unauthorized func() string
	unreachable  func() string
}

// Outcome is what one run did
type Outcome struct {
	Request    platform.Request
	Results    []models.FileResult
	Resources  []models.ResourceResult
	Comment    string // posted body, or the would-be body in dev mode
	AssetCount int
}

// runner holds the flow shared by every integration
type runner struct {
	name     string
	cfg      *config.Config
	host     platform.Platform
	catalog  Catalog
	events   *telemetry.Emitter
	comments *comment.Manager
	renderer *reporter.Renderer
	auth     authMessages
	logger   *zap.Logger
}

func newRunner(name string, cfg *config.Config, host platform.Platform, cat Catalog, sink telemetry.Sink,
	isBot comment.AuthorMatcher, auth authMessages, logger *zap.Logger) *runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named(name)

	if cfg.DevMode {
		sink = telemetry.NopSink{}
	}

	return &runner{
		name:     name,
		cfg:      cfg,
		host:     host,
		catalog:  cat,
		events:   telemetry.NewEmitter(sink, logger),
		comments: comment.NewManager(host, isBot, cfg.DevMode, logger),
		renderer: reporter.NewRenderer(cfg.InstanceURL, name),
		auth:     auth,
		logger:   logger,
	}
}

// execute authenticates, runs the flow matching the request state and
// emits the run event.
func (r *runner) execute(ctx context.Context) (*Outcome, error) {
	start := time.Now()
	defer r.flush()

	req := r.host.Request()
	outcome := &Outcome{Request: req}
	r.logger.Info("starting run",
		zap.Int("request", req.Number),
		zap.String("state", string(req.State)),
		zap.String("target_branch", req.TargetBranch))

	if err := r.authenticate(ctx, outcome); err != nil {
		return outcome, err
	}

	if req.State == platform.StateClosed {
		r.logger.Info("request closed without merge, nothing to do")
		return outcome, nil
	}

	files, err := collector.New(r.host, r.cfg.IsModelExcluded, r.logger).Collect(ctx, req.HeadSHA)
	if err != nil {
		return outcome, err
	}

	environment := r.cfg.EnvironmentForBranch(req.TargetBranch)
	pipeline := analyzer.New(
		r.catalog,
		collector.NewAliasResolver(r.host, r.cfg.IgnoreModelAliasMatching, r.logger),
		r.events,
		analyzer.Options{
			Concurrency: r.cfg.Concurrency,
			PageSize:    r.cfg.DownstreamPageSize,
			MaxEntities: r.cfg.MaxDownstreamAssets,
		},
		r.logger,
	)

	if req.State == platform.StateMerged {
		err = r.mergedFlow(ctx, pipeline, files, environment, outcome)
	} else {
		err = r.openFlow(ctx, pipeline, files, environment, outcome)
	}
	if err != nil {
		return outcome, err
	}

	if outcome.AssetCount != 0 {
		r.events.Emit(telemetry.Event{
			Action: telemetry.ActionRun,
			Properties: map[string]any{
				"asset_count": outcome.AssetCount,
				"total_time":  time.Since(start).Milliseconds(),
			},
		})
	}

	r.logger.Info("run completed",
		zap.Int("files", len(files)),
		zap.Int("asset_count", outcome.AssetCount),
		zap.Duration("elapsed", time.Since(start)))
	return outcome, nil
}

func (r *runner) authenticate(ctx context.Context, outcome *Outcome) error {
	err := r.catalog.CheckAuth(ctx)
	if err == nil {
		return nil
	}

	var content string
	switch {
	case errors.Is(err, catalog.ErrUnauthorized):
		content = r.auth.unauthorized()
	case errors.Is(err, catalog.ErrUnreachable):
		content = r.auth.unreachable()
	default:
		return err
	}

	body, _, commentErr := r.comments.Ensure(ctx, content, false)
	if commentErr != nil {
		r.logger.Error("failed to post authentication comment", zap.Error(commentErr))
	}
	outcome.Comment = body
	return fmt.Errorf("%w: %w", ErrAuthFailed, err)
}

// openFlow renders every changed file into one comment and converges the
// request's bot comment on it.
func (r *runner) openFlow(ctx context.Context, pipeline *analyzer.Analyzer, files []models.ChangedFile, environment string, outcome *Outcome) error {
	results, err := pipeline.Analyze(ctx, files, analyzer.Pass{Environment: environment, SkipAdded: true})
	if err != nil {
		return err
	}

	var classifications []models.Classification
	if analyzer.CountImpact(results) > 0 {
		classifications = pipeline.Classifications(ctx)
	}

	sections := make([]string, 0, len(results))
	for i := range results {
		results[i].Section = r.renderer.Section(results[i], classifications)
		sections = append(sections, results[i].Section)
	}
	outcome.Results = results
	outcome.AssetCount = len(files)

	content := ""
	if len(files) > 0 {
		content = r.renderer.BaseComment(len(files), sections)
	}

	body, action, err := r.comments.Ensure(ctx, content, false)
	if err != nil {
		return err
	}
	outcome.Comment = body
	r.logger.Info("impact comment converged", zap.String("action", string(action)))
	return nil
}

// mergedFlow attaches the merged request to every impacted model and posts
// a fresh summary comment.
func (r *runner) mergedFlow(ctx context.Context, pipeline *analyzer.Analyzer, files []models.ChangedFile, environment string, outcome *Outcome) error {
	if len(files) == 0 {
		r.logger.Info("no changed models in merged request")
		return nil
	}

	results, err := pipeline.Analyze(ctx, files, analyzer.Pass{Environment: environment})
	if err != nil {
		return err
	}
	outcome.Results = results

	req := outcome.Request
	for _, result := range results {
		if result.Outcome != models.OutcomeImpact {
			r.logger.Debug("skipping resource attachment",
				zap.String("model", result.AssetName),
				zap.String("outcome", string(result.Outcome)))
			continue
		}

		if result.Downstream != nil && result.Downstream.EntityCount != 0 {
			outcome.Resources = append(outcome.Resources, pipeline.Attach(ctx, result, req.Title, req.URL)...)
		}
		outcome.AssetCount++
	}

	body, _, err := r.comments.Ensure(ctx, r.renderer.MergeComment(outcome.Resources), true)
	if err != nil {
		return err
	}
	outcome.Comment = body
	return nil
}

func (r *runner) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := r.events.Flush(ctx); err != nil {
		r.logger.Debug("telemetry flush incomplete", zap.Error(err))
	}
}

package analyzer

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/dbtspectre/internal/catalog"
	"github.com/ppiankov/dbtspectre/internal/models"
	"github.com/ppiankov/dbtspectre/internal/telemetry"
)

// Catalog is the part of the catalog API the pipeline needs
type Catalog interface {
	SearchDbtModels(ctx context.Context, name, environment string) ([]models.Asset, error)
	ListDownstream(ctx context.Context, guid string, from, size int) (*catalog.LineagePage, error)
	ListClassifications(ctx context.Context) ([]models.Classification, error)
	CreateLink(ctx context.Context, assetGUID, title, link string) error
}

// NameResolver maps a changed file to the catalog asset name to look up
type NameResolver interface {
	Resolve(ctx context.Context, file models.ChangedFile) string
}

// EventEmitter receives usage and failure events
type EventEmitter interface {
	Emit(event telemetry.Event)
}

// Options tunes the pipeline
type Options struct {
	Concurrency int // files processed in parallel
	PageSize    int // downstream entities per lineage request
	MaxEntities int // downstream entities fetched per model
}

// Pass scopes one Analyze call
type Pass struct {
	Environment string // dbt environment for the target branch, may be empty
	SkipAdded   bool   // render added models as new without a catalog lookup
}

// Analyzer runs the per-file lookup and downstream pipeline.
// One Analyzer serves a single run; lookups and classifications are
// memoized for its lifetime.
type Analyzer struct {
	catalog Catalog
	names   NameResolver
	events  EventEmitter
	opts    Options
	logger  *zap.Logger
	memo    *lookupMemo

	classOnce       sync.Once
	classifications []models.Classification
}

// New creates an analyzer
func New(cat Catalog, names NameResolver, events EventEmitter, opts Options, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if events == nil {
		events = telemetry.NewEmitter(nil, logger)
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 25
	}
	if opts.MaxEntities < opts.PageSize {
		opts.MaxEntities = opts.PageSize
	}
	return &Analyzer{
		catalog: cat,
		names:   names,
		events:  events,
		opts:    opts,
		logger:  logger.Named("analyzer"),
		memo:    newLookupMemo(),
	}
}

// Analyze processes files with bounded parallelism.
// The result slice matches files index for index; a failure on one file
// never affects another. The only error is ctx's.
func (a *Analyzer) Analyze(ctx context.Context, files []models.ChangedFile, pass Pass) ([]models.FileResult, error) {
	results := make([]models.FileResult, len(files))
	modified := CountModified(files)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Concurrency)

	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = a.analyzeFile(gctx, file, pass, modified)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (a *Analyzer) analyzeFile(ctx context.Context, file models.ChangedFile, pass Pass, modified int) models.FileResult {
	result := models.FileResult{
		File:        file,
		AssetName:   file.FileName,
		Environment: pass.Environment,
	}

	if pass.SkipAdded && file.Status == models.StatusAdded {
		result.Outcome = models.OutcomeNewModel
		return result
	}

	result.AssetName = a.names.Resolve(ctx, file)
	lookup := a.Lookup(ctx, result.AssetName, pass.Environment)
	result.Asset = lookup.Asset

	switch lookup.Status {
	case models.LookupNotFound:
		result.Outcome = models.OutcomeNotFound
		if lookup.Err != nil {
			result.Error = lookup.Err.Error()
		}
		return result
	case models.LookupDoesNotMaterialize:
		result.Outcome = models.OutcomeNotMaterialized
		return result
	}

	materialized, _ := lookup.Asset.MaterializedAsset()
	result.Materialized = &materialized

	downstream, err := a.Downstream(ctx, *lookup.Asset, materialized.GUID, modified)
	if err != nil {
		a.logger.Warn("failed to fetch downstream assets",
			zap.String("model", result.AssetName),
			zap.String("guid", materialized.GUID),
			zap.Error(err))
		result.Outcome = models.OutcomeDownstreamError
		result.Error = err.Error()
		return result
	}

	result.Downstream = downstream
	result.Outcome = models.OutcomeImpact
	return result
}

// Classifications returns the tenant's classification definitions, fetched
// at most once per run. A failed fetch yields an empty list.
func (a *Analyzer) Classifications(ctx context.Context) []models.Classification {
	a.classOnce.Do(func() {
		defs, err := a.catalog.ListClassifications(ctx)
		if err != nil {
			a.logger.Warn("failed to fetch classifications", zap.Error(err))
			a.events.Emit(telemetry.Failure(telemetry.ReasonGetClassifications, map[string]any{
				"msg": err.Error(),
			}))
			a.classifications = []models.Classification{}
			return
		}
		a.classifications = defs
	})
	return a.classifications
}

// CountModified returns how many files have status modified
func CountModified(files []models.ChangedFile) int {
	count := 0
	for _, file := range files {
		if file.Status == models.StatusModified {
			count++
		}
	}
	return count
}

// CountImpact returns how many results reached a downstream set
func CountImpact(results []models.FileResult) int {
	count := 0
	for _, result := range results {
		if result.Outcome == models.OutcomeImpact {
			count++
		}
	}
	return count
}

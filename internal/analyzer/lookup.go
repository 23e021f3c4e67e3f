package analyzer

import (
	"context"

	"go.uber.org/zap"

	"github.com/ppiankov/dbtspectre/internal/models"
	"github.com/ppiankov/dbtspectre/internal/telemetry"
)

// LookupResult is the outcome of a catalog lookup for one model name
type LookupResult struct {
	Status models.LookupStatus
	Name   string
	Asset  *models.Asset // first matching entity; nil when not found
	Err    error         // transport failure, reported as not found
}

// Lookup finds the dbt model named name in the catalog.
// Results are memoized per (name, environment) for the run; transport
// failures are not.
func (a *Analyzer) Lookup(ctx context.Context, name, environment string) LookupResult {
	return a.memo.Do(memoKey{name: name, environment: environment}, func() LookupResult {
		return a.lookup(ctx, name, environment)
	})
}

func (a *Analyzer) lookup(ctx context.Context, name, environment string) LookupResult {
	entities, err := a.catalog.SearchDbtModels(ctx, name, environment)
	if err != nil {
		a.logger.Warn("failed to search catalog",
			zap.String("model", name),
			zap.String("environment", environment),
			zap.Error(err))
		a.events.Emit(telemetry.Failure(telemetry.ReasonGetAsset, map[string]any{
			"asset_name": name,
			"msg":        err.Error(),
		}))
		return LookupResult{Status: models.LookupNotFound, Name: name, Err: err}
	}

	result := ClassifyLookup(name, entities)
	a.logger.Debug("catalog lookup",
		zap.String("model", name),
		zap.String("environment", environment),
		zap.String("status", string(result.Status)),
		zap.Int("entities", len(entities)))
	return result
}

// ClassifyLookup maps search results to exactly one lookup status.
// Only the first entity is considered.
func ClassifyLookup(name string, entities []models.Asset) LookupResult {
	if len(entities) == 0 {
		return LookupResult{Status: models.LookupNotFound, Name: name}
	}

	first := entities[0]
	if !first.IsMaterialized() {
		return LookupResult{Status: models.LookupDoesNotMaterialize, Name: name, Asset: &first}
	}
	return LookupResult{Status: models.LookupFound, Name: name, Asset: &first}
}

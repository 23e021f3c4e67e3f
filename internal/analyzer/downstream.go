package analyzer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/dbtspectre/internal/models"
	"github.com/ppiankov/dbtspectre/internal/telemetry"
)

// Downstream fetches the assets downstream of the materialized asset guid.
// model is the dbt model the guid belongs to and only labels events.
// modified is the number of modified files in the run.
func (a *Analyzer) Downstream(ctx context.Context, model models.Asset, guid string, modified int) (*models.DownstreamSet, error) {
	start := time.Now()

	set, err := a.fetchDownstream(ctx, guid)
	if err != nil {
		a.events.Emit(telemetry.Failure(telemetry.ReasonFetchLineage, map[string]any{
			"asset_guid":     model.GUID,
			"asset_name":     model.Attributes.Name,
			"asset_typeName": model.TypeName,
			"total_assets":   modified,
			"msg":            err.Error(),
		}))
		return nil, err
	}

	a.events.Emit(telemetry.Event{
		Action: telemetry.ActionDownstreamUnfurl,
		Properties: map[string]any{
			"asset_guid":       model.GUID,
			"asset_type":       model.TypeName,
			"downstream_count": len(set.Entities),
			"total_fetch_time": time.Since(start).Milliseconds(),
		},
	})

	return set, nil
}

// fetchDownstream pages through lineage until the server has no more, the
// reported total is reached, or MaxEntities were collected.
func (a *Analyzer) fetchDownstream(ctx context.Context, guid string) (*models.DownstreamSet, error) {
	limit := a.opts.MaxEntities
	entities := make([]models.Asset, 0, a.opts.PageSize)
	seen := make(map[string]struct{})
	serverTotal := 0
	from := 0
	exhausted, capped := false, false

	for page := 1; ; page++ {
		size := a.opts.PageSize
		if remaining := limit - len(entities); remaining < size {
			size = remaining
		}

		resp, err := a.catalog.ListDownstream(ctx, guid, from, size)
		if err != nil {
			return nil, fmt.Errorf("lineage page %d: %w", page, err)
		}

		serverTotal = max(serverTotal, resp.EntityCount)
		for _, entity := range resp.Entities {
			if entity.GUID != "" {
				if _, dup := seen[entity.GUID]; dup {
					continue
				}
				seen[entity.GUID] = struct{}{}
			}
			entities = append(entities, entity)
		}
		from += len(resp.Entities)

		if !resp.HasMore || len(resp.Entities) == 0 {
			exhausted = true
			break
		}
		if len(entities) >= limit {
			capped = true
			break
		}
		if serverTotal > 0 && from >= serverTotal {
			break
		}
	}

	var count int
	switch {
	case exhausted:
		// nothing left server side, so the distinct total is exact
		count = len(entities)
	case capped:
		count = max(serverTotal, len(entities)+1)
	default:
		count = max(serverTotal, len(entities))
	}

	if len(entities) > limit {
		entities = entities[:limit]
	}
	a.logger.Debug("fetched downstream assets",
		zap.String("guid", guid),
		zap.Int("fetched", len(entities)),
		zap.Int("entity_count", count))

	return &models.DownstreamSet{
		Entities:    entities,
		EntityCount: count,
		HasMore:     count > len(entities),
	}, nil
}

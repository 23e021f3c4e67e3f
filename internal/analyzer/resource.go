package analyzer

import (
	"context"

	"go.uber.org/zap"

	"github.com/ppiankov/dbtspectre/internal/models"
	"github.com/ppiankov/dbtspectre/internal/telemetry"
)

// Attach links the merged request to the model and to its materialized
// asset. Each guid is attempted independently.
func (a *Analyzer) Attach(ctx context.Context, result models.FileResult, title, link string) []models.ResourceResult {
	attached := make([]models.ResourceResult, 0, 2)

	if result.Asset != nil {
		attached = append(attached, a.attachOne(ctx, models.ResourceResult{
			GUID:          result.Asset.GUID,
			Name:          result.Asset.DisplayText,
			ConnectorName: result.Asset.Attributes.ConnectorName,
		}, title, link))
	}

	if result.Materialized != nil {
		attached = append(attached, a.attachOne(ctx, models.ResourceResult{
			GUID:          result.Materialized.GUID,
			Name:          result.Materialized.Attributes.Name,
			ConnectorName: result.Materialized.Attributes.ConnectorName,
		}, title, link))
	}

	return attached
}

func (a *Analyzer) attachOne(ctx context.Context, target models.ResourceResult, title, link string) models.ResourceResult {
	if err := a.catalog.CreateLink(ctx, target.GUID, title, link); err != nil {
		a.logger.Warn("failed to attach resource",
			zap.String("guid", target.GUID),
			zap.String("link", link),
			zap.Error(err))
		a.events.Emit(telemetry.Failure(telemetry.ReasonCreateResource, map[string]any{
			"asset_guid": target.GUID,
			"asset_name": title,
			"msg":        err.Error(),
		}))
		return target
	}

	target.Attached = true
	return target
}

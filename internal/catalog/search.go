package catalog

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/ppiankov/dbtspectre/internal/models"
)

const searchPageSize = 21

// searchAttributes are returned for the dbt model entity itself.
var searchAttributes = []string{
	"name",
	"description",
	"userDescription",
	"sourceURL",
	"qualifiedName",
	"connectorName",
	"certificateStatus",
	"certificateUpdatedBy",
	"certificateUpdatedAt",
	"ownerUsers",
	"ownerGroups",
	"classificationNames",
	"meanings",
	"dbtModelSqlAssets",
}

// searchRelationAttributes are returned for related entities, including the
// materialized table under dbtModelSqlAssets.
var searchRelationAttributes = []string{
	"name",
	"description",
	"assetDbtProjectName",
	"assetDbtEnvironmentName",
	"connectorName",
	"certificateStatus",
}

type searchRequest struct {
	DSL                map[string]any `json:"dsl"`
	Attributes         []string       `json:"attributes"`
	RelationAttributes []string       `json:"relationAttributes"`
}

type searchResponse struct {
	ApproximateCount int            `json:"approximateCount"`
	Entities         []models.Asset `json:"entities"`
}

// SearchDbtModels returns the active dbt models named name, optionally
// restricted to one dbt environment.
func (c *Client) SearchDbtModels(ctx context.Context, name, environment string) ([]models.Asset, error) {
	must := []any{
		term("__state", "ACTIVE"),
		term("__typeName.keyword", "DbtModel"),
		term("name.keyword", name),
	}
	if environment != "" {
		must = append(must, term("assetDbtEnvironmentName.keyword", environment))
	}

	payload := searchRequest{
		DSL: map[string]any{
			"from": 0,
			"size": searchPageSize,
			"query": map[string]any{
				"bool": map[string]any{"must": must},
			},
		},
		Attributes:         searchAttributes,
		RelationAttributes: searchRelationAttributes,
	}

	c.logger.Debug("Searching catalog for dbt model",
		zap.String("name", name),
		zap.String("environment", environment))

	var response searchResponse
	if err := c.do(ctx, http.MethodPost, nil, payload, &response, "api", "meta", "search", "indexsearch"); err != nil {
		return nil, fmt.Errorf("failed to search for model %q: %w", name, err)
	}

	return response.Entities, nil
}

func term(field, value string) map[string]any {
	return map[string]any{
		"term": map[string]any{field: value},
	}
}

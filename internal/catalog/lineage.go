package catalog

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/ppiankov/dbtspectre/internal/models"
)

const lineageDepth = 21

var lineageAttributes = []string{
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
}

type lineageCriterion struct {
	AttributeName  string `json:"attributeName"`
	Operator       string `json:"operator"`
	AttributeValue string `json:"attributeValue"`
}

type lineageFilter struct {
	Condition string             `json:"condition"`
	Criterion []lineageCriterion `json:"criterion"`
}

type lineageRequest struct {
	GUID                   string        `json:"guid"`
	Size                   int           `json:"size"`
	From                   int           `json:"from"`
	Depth                  int           `json:"depth"`
	Direction              string        `json:"direction"`
	EntityFilters          lineageFilter `json:"entityFilters"`
	Attributes             []string      `json:"attributes"`
	ExcludeMeanings        bool          `json:"excludeMeanings"`
	ExcludeClassifications bool          `json:"excludeClassifications"`
}

// LineagePage is one page of downstream lineage.
type LineagePage struct {
	Entities    []models.Asset `json:"entities"`
	EntityCount int            `json:"entityCount"`
	HasMore     bool           `json:"hasMore"`
}

// ListDownstream fetches one page of active, non-process assets downstream
// of guid.
func (c *Client) ListDownstream(ctx context.Context, guid string, from, size int) (*LineagePage, error) {
	payload := lineageRequest{
		GUID:      guid,
		Size:      size,
		From:      from,
		Depth:     lineageDepth,
		Direction: "OUTPUT",
		EntityFilters: lineageFilter{
			Condition: "AND",
			Criterion: []lineageCriterion{
				{AttributeName: "__typeName", Operator: "not_contains", AttributeValue: "Process"},
				{AttributeName: "__state", Operator: "eq", AttributeValue: "ACTIVE"},
			},
		},
		Attributes:             lineageAttributes,
		ExcludeMeanings:        false,
		ExcludeClassifications: false,
	}

	c.logger.Debug("Fetching downstream lineage",
		zap.String("guid", guid),
		zap.Int("from", from),
		zap.Int("size", size))

	var page LineagePage
	if err := c.do(ctx, http.MethodPost, nil, payload, &page, "api", "meta", "lineage", "list"); err != nil {
		return nil, fmt.Errorf("failed to fetch lineage for %s: %w", guid, err)
	}

	return &page, nil
}

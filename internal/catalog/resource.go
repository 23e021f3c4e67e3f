package catalog

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type linkAttributes struct {
	QualifiedName string   `json:"qualifiedName"`
	Name          string   `json:"name"`
	Link          string   `json:"link"`
	TenantID      string   `json:"tenantId"`
	Asset         assetRef `json:"asset"`
}

type assetRef struct {
	GUID string `json:"guid"`
}

type linkEntity struct {
	TypeName   string         `json:"typeName"`
	Attributes linkAttributes `json:"attributes"`
}

// CreateLink attaches a Link resource titled title and pointing to link on
// the asset with the given guid.
func (c *Client) CreateLink(ctx context.Context, assetGUID, title, link string) error {
	payload := map[string][]linkEntity{
		"entities": {{
			TypeName: "Link",
			Attributes: linkAttributes{
				QualifiedName: uuid.NewString(),
				Name:          title,
				Link:          link,
				TenantID:      "default",
				Asset:         assetRef{GUID: assetGUID},
			},
		}},
	}

	c.logger.Debug("Creating link resource",
		zap.String("asset_guid", assetGUID),
		zap.String("link", link))

	if err := c.do(ctx, http.MethodPost, nil, payload, nil, "api", "meta", "entity", "bulk"); err != nil {
		return fmt.Errorf("failed to create link on %s: %w", assetGUID, err)
	}
	return nil
}

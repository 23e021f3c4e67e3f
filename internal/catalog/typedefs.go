package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ppiankov/dbtspectre/internal/models"
)

// ListClassifications returns every classification definition of the tenant.
func (c *Client) ListClassifications(ctx context.Context) ([]models.Classification, error) {
	query := url.Values{"type": []string{"classification"}}

	var response struct {
		ClassificationDefs []models.Classification `json:"classificationDefs"`
	}
	if err := c.do(ctx, http.MethodGet, query, nil, &response, "api", "meta", "types", "typedefs"); err != nil {
		return nil, fmt.Errorf("failed to list classifications: %w", err)
	}

	return response.ClassificationDefs, nil
}

package catalog

import (
	"context"
	"fmt"
	"net/http"
)

// TrackRequest is a usage analytics event.
type TrackRequest struct {
	Category   string         `json:"category"`
	Object     string         `json:"object"`
	Action     string         `json:"action"`
	UserID     string         `json:"userId"`
	Properties map[string]any `json:"properties"`
}

// Track posts an analytics event to the instance's segment endpoint.
func (c *Client) Track(ctx context.Context, event TrackRequest) error {
	if err := c.do(ctx, http.MethodPost, nil, event, nil, "api", "service", "segment", "track"); err != nil {
		return fmt.Errorf("failed to track %s: %w", event.Action, err)
	}
	return nil
}

package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// CheckAuth verifies that the instance is reachable and accepts the token.
// It returns ErrUnauthorized for a rejected token and ErrUnreachable when
// no HTTP response was received. Other statuses are not auth problems.
func (c *Client) CheckAuth(ctx context.Context) error {
	err := c.do(ctx, http.MethodGet, nil, nil, nil, "api", "meta")
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrUnauthorized) {
		c.logger.Warn("catalog rejected the API token", zap.String("instance", c.baseURL))
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		c.logger.Debug("auth check returned non-auth status", zap.Int("status", statusErr.StatusCode))
		return nil
	}

	if errors.Is(err, context.Canceled) {
		return err
	}

	c.logger.Warn("catalog instance unreachable", zap.String("instance", c.baseURL), zap.Error(err))
	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}

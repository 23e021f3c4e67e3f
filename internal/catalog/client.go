// Package catalog provides a client for the Atlan metadata API.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout is the maximum time to wait for a single catalog response.
const DefaultTimeout = 30 * time.Second

// Options configures a Client.
type Options struct {
	BaseURL       string        // instance origin, e.g. https://tenant.atlan.com
	Token         string        // API token sent as a bearer credential
	Timeout       time.Duration // per-request timeout
	RetryAttempts int           // attempts per request including the first
	RateLimit     int           // requests per second
	HTTPClient    *http.Client  // optional, mainly for tests
}

// Client provides access to the catalog API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *RateLimiter
	retry      retryConfig
	logger     *zap.Logger
}

// NewClient creates a new catalog client.
func NewClient(opts Options, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	retry := defaultRetryConfig()
	if opts.RetryAttempts > 0 {
		retry.maxAttempts = opts.RetryAttempts
	}

	rps := opts.RateLimit
	if rps <= 0 {
		rps = defaultRateLimit
	}

	return &Client{
		baseURL:    opts.BaseURL,
		token:      opts.Token,
		httpClient: httpClient,
		limiter:    NewRateLimiter(rps),
		retry:      retry,
		logger:     logger.Named("catalog"),
	}
}

// do sends one logical request, retrying transient failures.
// payload is JSON-encoded when non-nil; the response is decoded into out
// when out is non-nil.
func (c *Client) do(ctx context.Context, method string, query url.Values, payload, out any, segments ...string) error {
	endpoint, err := buildURL(c.baseURL, query, segments...)
	if err != nil {
		return fmt.Errorf("failed to build URL: %w", err)
	}

	var body []byte
	if payload != nil {
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	var respBody []byte
	err = executeWithRetry(ctx, c.retry, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		data, sendErr := c.send(ctx, method, endpoint, body)
		if sendErr != nil {
			c.logger.Debug("catalog request failed",
				zap.String("method", method),
				zap.String("url", endpoint),
				zap.Error(sendErr))
			return sendErr
		}
		respBody = data
		return nil
	})
	if err != nil {
		return err
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// send executes a single HTTP round trip.
func (c *Client) send(ctx context.Context, method, endpoint string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call catalog: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{
			Method:     method,
			URL:        endpoint,
			StatusCode: resp.StatusCode,
			Body:       truncateBody(respBody),
		}
	}

	return respBody, nil
}

// buildURL constructs a URL by parsing the base and joining path segments.
func buildURL(baseURL string, query url.Values, pathSegments ...string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}

	segments := append([]string{u.Path}, pathSegments...)
	u.Path = path.Join(segments...)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	return u.String(), nil
}

func truncateBody(body []byte) string {
	const limit = 512
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}

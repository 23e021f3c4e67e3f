package catalog

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	maxRetryAttempts    = 3
	initialRetryBackoff = 200 * time.Millisecond
	maxRetryBackoff     = 3 * time.Second
)

var retryableErrorSubstrings = []string{
	"timeout",
	"eof",
	"broken pipe",
	"connection reset",
	"connection refused",
	"connection aborted",
	"connection closed",
	"use of closed network connection",
	"network is unreachable",
	"no route to host",
}

type retryConfig struct {
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	sleep          func(context.Context, time.Duration) error
}

func defaultRetryConfig() retryConfig {
	return retryConfig{
		maxAttempts:    maxRetryAttempts,
		initialBackoff: initialRetryBackoff,
		maxBackoff:     maxRetryBackoff,
		sleep:          sleepWithContext,
	}
}

func (cfg retryConfig) normalized() retryConfig {
	if cfg.maxAttempts <= 0 {
		cfg.maxAttempts = maxRetryAttempts
	}
	if cfg.initialBackoff <= 0 {
		cfg.initialBackoff = initialRetryBackoff
	}
	if cfg.maxBackoff <= 0 {
		cfg.maxBackoff = maxRetryBackoff
	}
	if cfg.sleep == nil {
		cfg.sleep = sleepWithContext
	}
	if cfg.maxBackoff < cfg.initialBackoff {
		cfg.maxBackoff = cfg.initialBackoff
	}
	return cfg
}

// executeWithRetry runs fn until it succeeds, fails permanently, or the
// attempts run out. Backoff doubles up to maxBackoff.
func executeWithRetry(ctx context.Context, cfg retryConfig, fn func() error) error {
	cfg = cfg.normalized()
	backoff := cfg.initialBackoff

	var lastErr error
	for attempt := 1; attempt <= cfg.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if isAuthError(err) || !isRetryableError(err) || attempt == cfg.maxAttempts {
			return err
		}

		if err := cfg.sleep(ctx, backoff); err != nil {
			return err
		}

		if backoff < cfg.maxBackoff {
			backoff *= 2
			if backoff > cfg.maxBackoff {
				backoff = cfg.maxBackoff
			}
		}
	}

	return lastErr
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func isAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

func isRetryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests ||
			statusErr.StatusCode == http.StatusRequestTimeout ||
			statusErr.StatusCode >= http.StatusInternalServerError
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errText := strings.ToLower(err.Error())
	for _, marker := range retryableErrorSubstrings {
		if strings.Contains(errText, marker) {
			return true
		}
	}

	return false
}

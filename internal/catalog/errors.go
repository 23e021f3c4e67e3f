package catalog

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized means the catalog rejected the API token.
	ErrUnauthorized = errors.New("catalog rejected the API token")
	// ErrUnreachable means the catalog instance could not be reached at all.
	ErrUnreachable = errors.New("catalog instance is unreachable")
)

// StatusError is a non-2xx catalog response.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("catalog %s %s returned status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Is matches ErrUnauthorized for 401 and 403 responses.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized &&
		(e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden)
}

package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var shortDuration = regexp.MustCompile(`^(\d+)([smhd])$`)

// ParseDuration parses a config-file duration.
// Plain "<n><unit>" values accept s, m, h and d (days); anything else is
// handed to time.ParseDuration, so "1m30s" works too.
func ParseDuration(s string) (time.Duration, error) {
	value := strings.TrimSpace(s)
	matches := shortDuration.FindStringSubmatch(value)
	if matches == nil {
		return time.ParseDuration(value)
	}

	n, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, fmt.Errorf("invalid duration value: %s", matches[1])
	}

	switch matches[2] {
	case "s":
		return time.Duration(n) * time.Second, nil
	case "m":
		return time.Duration(n) * time.Minute, nil
	case "h":
		return time.Duration(n) * time.Hour, nil
	case "d":
		return time.Duration(n) * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown time unit: %s", matches[2])
	}
}

package config

import (
	"path"
	"strings"
)

// Normalize trims exclude patterns and removes empty values.
func (c *Config) Normalize() {
	if c == nil {
		return
	}
	c.ExcludeModels = normalizePatterns(c.ExcludeModels)
}

// IsModelExcluded reports whether a changed model matches exclude_models.
// Patterns are tried against the model name and against the repo-relative
// path, so both "stg_*" and "models/staging/*" work.
func (c *Config) IsModelExcluded(modelName, filePath string) bool {
	if c == nil || len(c.ExcludeModels) == 0 {
		return false
	}

	name := normalizePattern(modelName)
	filename := normalizePattern(filePath)
	if name == "" && filename == "" {
		return false
	}

	for _, pattern := range c.ExcludeModels {
		if name != "" && patternMatches(pattern, name) {
			return true
		}
		if filename != "" && patternMatches(pattern, filename) {
			return true
		}
	}

	return false
}

func normalizePatterns(values []string) []string {
	if len(values) == 0 {
		return []string{}
	}

	normalized := make([]string, 0, len(values))
	for _, pattern := range values {
		p := normalizePattern(pattern)
		if p == "" {
			continue
		}
		normalized = append(normalized, p)
	}
	return normalized
}

func normalizePattern(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func patternMatches(pattern, value string) bool {
	normalizedPattern := normalizePattern(pattern)
	normalizedValue := normalizePattern(value)
	if normalizedPattern == "" || normalizedValue == "" {
		return false
	}

	// Invalid glob patterns are treated as exact matches.
	matched, err := path.Match(normalizedPattern, normalizedValue)
	if err == nil {
		return matched
	}
	return normalizedPattern == normalizedValue
}

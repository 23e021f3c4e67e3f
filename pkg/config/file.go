package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigFileYAML is the canonical config filename.
	DefaultConfigFileYAML = ".dbtspectre.yaml"
	// DefaultConfigFileYML is a compatible alternate config filename.
	DefaultConfigFileYML = ".dbtspectre.yml"
)

// FileConfig represents values loaded from a .dbtspectre.yaml file.
// Tokens are deliberately absent; they must come from the CI environment.
type FileConfig struct {
	InstanceURL              string   `yaml:"atlan_instance_url"`
	IgnoreModelAliasMatching *bool    `yaml:"ignore_model_alias_matching"`
	EnvironmentBranchMap     string   `yaml:"dbt_environment_branch_map"`
	ExcludeModels            []string `yaml:"exclude_models"`
	Timeout                  string   `yaml:"timeout"`
	RetryAttempts            *int     `yaml:"retry_attempts"`
	RateLimit                *int     `yaml:"rate_limit"`
	Concurrency              *int     `yaml:"concurrency"`
	DownstreamPageSize       *int     `yaml:"downstream_page_size"`
	MaxDownstreamAssets      *int     `yaml:"max_downstream_assets"`
	FailOnAuthError          *bool    `yaml:"fail_on_auth_error"`
}

// Normalize trims and removes empty items from list fields.
func (fc *FileConfig) Normalize() {
	if fc == nil {
		return
	}
	fc.ExcludeModels = normalizeList(fc.ExcludeModels)
	fc.InstanceURL = strings.TrimSpace(fc.InstanceURL)
	fc.Timeout = strings.TrimSpace(fc.Timeout)
}

// Apply copies the values set in the file onto cfg.
// A nil FileConfig leaves cfg untouched.
func (fc *FileConfig) Apply(cfg *Config) error {
	if fc == nil || cfg == nil {
		return nil
	}

	if fc.InstanceURL != "" {
		cfg.InstanceURL = fc.InstanceURL
	}
	if fc.IgnoreModelAliasMatching != nil && *fc.IgnoreModelAliasMatching {
		cfg.IgnoreAliasValue = "true"
	}
	if strings.TrimSpace(fc.EnvironmentBranchMap) != "" {
		cfg.EnvironmentBranchMap = fc.EnvironmentBranchMap
	}
	if len(fc.ExcludeModels) > 0 {
		cfg.ExcludeModels = append([]string(nil), fc.ExcludeModels...)
	}
	if fc.Timeout != "" {
		timeout, err := ParseDuration(fc.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout %q in config file: %w", fc.Timeout, err)
		}
		cfg.HTTPTimeout = timeout
	}
	if fc.RetryAttempts != nil {
		cfg.RetryAttempts = *fc.RetryAttempts
	}
	if fc.RateLimit != nil {
		cfg.RateLimit = *fc.RateLimit
	}
	if fc.Concurrency != nil {
		cfg.Concurrency = *fc.Concurrency
	}
	if fc.DownstreamPageSize != nil {
		cfg.DownstreamPageSize = *fc.DownstreamPageSize
	}
	if fc.MaxDownstreamAssets != nil {
		cfg.MaxDownstreamAssets = *fc.MaxDownstreamAssets
	}
	if fc.FailOnAuthError != nil {
		cfg.FailOnAuthError = *fc.FailOnAuthError
	}

	return nil
}

// AutoLoadFile discovers and loads the first available config file.
// The working directory is the checked-out repository in CI, so it wins
// over the home directory.
func AutoLoadFile() (*FileConfig, string, error) {
	candidates := []string{
		DefaultConfigFileYAML,
		DefaultConfigFileYML,
	}

	if homeDir, err := os.UserHomeDir(); err == nil && strings.TrimSpace(homeDir) != "" {
		candidates = append(candidates,
			filepath.Join(homeDir, DefaultConfigFileYAML),
			filepath.Join(homeDir, DefaultConfigFileYML),
		)
	}

	return LoadFirstExistingFile(candidates)
}

// LoadFirstExistingFile loads the first config file that exists in paths.
func LoadFirstExistingFile(paths []string) (*FileConfig, string, error) {
	for _, path := range paths {
		candidate := strings.TrimSpace(path)
		if candidate == "" {
			continue
		}

		info, err := os.Stat(candidate)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, "", fmt.Errorf("failed to access config file %q: %w", candidate, err)
		}
		if info.IsDir() {
			return nil, "", fmt.Errorf("config path %q is a directory, expected a file", candidate)
		}

		cfg, err := LoadFile(candidate)
		if err != nil {
			return nil, "", err
		}
		return cfg, candidate, nil
	}

	return nil, "", nil
}

// LoadFile loads config values from a specific YAML file path.
func LoadFile(path string) (*FileConfig, error) {
	filename := strings.TrimSpace(path)
	if filename == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", filename, err)
	}

	cfg := &FileConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %q: %w", filename, err)
	}

	cfg.Normalize()
	return cfg, nil
}

func normalizeList(values []string) []string {
	if len(values) == 0 {
		return []string{}
	}

	normalized := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		normalized = append(normalized, trimmed)
	}
	return normalized
}

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all runtime configuration.
// Values come from defaults, then an optional .dbtspectre.yaml file, then
// environment variables injected by the CI platform. Secrets (tokens) are
// only read from the environment.
type Config struct {
	// Catalog settings
	InstanceURL string `env:"ATLAN_INSTANCE_URL"`
	APIToken    string `env:"ATLAN_API_TOKEN"`

	// Raw flag values; see DevMode and IgnoreModelAliasMatching
	DevModeValue     string `env:"IS_DEV"`
	IgnoreAliasValue string `env:"IGNORE_MODEL_ALIAS_MATCHING"`

	// EnvironmentBranchMap is newline-delimited "branch:environment" pairs
	EnvironmentBranchMap string `env:"DBT_ENVIRONMENT_BRANCH_MAP"`

	// Hosting platform tokens
	GitHubToken string `env:"GITHUB_TOKEN"`
	GitLabToken string `env:"GITLAB_TOKEN"`

	// GitHub Action inputs, used when the plain variables are unset
	Inputs ActionInputs

	// Catalog client tuning
	HTTPTimeout   time.Duration `env:"DBTSPECTRE_HTTP_TIMEOUT" env-default:"30s"`
	RetryAttempts int           `env:"DBTSPECTRE_RETRY_ATTEMPTS" env-default:"3"`
	RateLimit     int           `env:"DBTSPECTRE_RATE_LIMIT" env-default:"10"`

	// Pipeline settings
	Concurrency         int      `env:"DBTSPECTRE_CONCURRENCY" env-default:"4"`
	DownstreamPageSize  int      `env:"DBTSPECTRE_DOWNSTREAM_PAGE_SIZE" env-default:"25"`
	MaxDownstreamAssets int      `env:"DBTSPECTRE_MAX_DOWNSTREAM_ASSETS" env-default:"100"`
	ExcludeModels       []string `env:"DBTSPECTRE_EXCLUDE_MODELS" env-separator:","`
	FailOnAuthError     bool     `env:"DBTSPECTRE_FAIL_ON_AUTH_ERROR"`

	// Resolved by Load, not read directly from the environment
	DevMode                  bool
	IgnoreModelAliasMatching bool
	Environments             []EnvironmentMapping
	Verbose                  bool
}

// ActionInputs are the INPUT_* variables GitHub sets for action `with:` values
type ActionInputs struct {
	InstanceURL          string `env:"INPUT_ATLAN_INSTANCE_URL"`
	APIToken             string `env:"INPUT_ATLAN_API_TOKEN"`
	IgnoreAliasValue     string `env:"INPUT_IGNORE_MODEL_ALIAS_MATCHING"`
	EnvironmentBranchMap string `env:"INPUT_DBT_ENVIRONMENT_BRANCH_MAP"`
	GitHubToken          string `env:"INPUT_GITHUB_TOKEN"`
}

// DefaultConfig returns a config with every tunable at its default value
func DefaultConfig() *Config {
	return &Config{
		HTTPTimeout:         30 * time.Second,
		RetryAttempts:       3,
		RateLimit:           10,
		Concurrency:         4,
		DownstreamPageSize:  25,
		MaxDownstreamAssets: 100,
		ExcludeModels:       []string{},
	}
}

// Load assembles the configuration once at process start.
// configPath selects a YAML file explicitly; when empty the usual locations
// are searched and a missing file is not an error.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	var (
		fileCfg *FileConfig
		err     error
	)
	if strings.TrimSpace(configPath) != "" {
		fileCfg, err = LoadFile(configPath)
	} else {
		fileCfg, _, err = AutoLoadFile()
	}
	if err != nil {
		return nil, err
	}

	if err := fileCfg.Apply(cfg); err != nil {
		return nil, err
	}

	// Set variables override file values; unset ones keep them.
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.resolve(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// resolve applies input fallbacks and derives the parsed fields.
func (c *Config) resolve() error {
	c.InstanceURL = firstNonEmpty(c.InstanceURL, c.Inputs.InstanceURL)
	c.APIToken = firstNonEmpty(c.APIToken, c.Inputs.APIToken)
	c.IgnoreAliasValue = firstNonEmpty(c.IgnoreAliasValue, c.Inputs.IgnoreAliasValue)
	c.EnvironmentBranchMap = firstNonEmpty(c.EnvironmentBranchMap, c.Inputs.EnvironmentBranchMap)
	c.GitHubToken = firstNonEmpty(c.Inputs.GitHubToken, c.GitHubToken)

	if c.InstanceURL != "" {
		origin, err := instanceOrigin(c.InstanceURL)
		if err != nil {
			return err
		}
		c.InstanceURL = origin
	}

	c.DevMode = isTruthy(c.DevModeValue)
	c.IgnoreModelAliasMatching = strings.TrimSpace(c.IgnoreAliasValue) == "true"
	c.Environments = ParseEnvironmentBranchMap(c.EnvironmentBranchMap)
	c.Normalize()

	return c.Validate()
}

// Validate checks the settings every integration needs.
func (c *Config) Validate() error {
	var errs []error

	if c.InstanceURL == "" {
		errs = append(errs, errors.New("ATLAN_INSTANCE_URL is required"))
	}
	if c.APIToken == "" {
		errs = append(errs, errors.New("ATLAN_API_TOKEN is required"))
	}
	if c.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("concurrency must be positive, got %d", c.Concurrency))
	}
	if c.DownstreamPageSize <= 0 {
		errs = append(errs, fmt.Errorf("downstream page size must be positive, got %d", c.DownstreamPageSize))
	}
	if c.MaxDownstreamAssets < c.DownstreamPageSize {
		errs = append(errs, fmt.Errorf("max downstream assets must be at least the page size (%d), got %d",
			c.DownstreamPageSize, c.MaxDownstreamAssets))
	}
	if c.RateLimit <= 0 {
		errs = append(errs, fmt.Errorf("rate limit must be positive, got %d", c.RateLimit))
	}
	if c.RetryAttempts <= 0 {
		errs = append(errs, fmt.Errorf("retry attempts must be positive, got %d", c.RetryAttempts))
	}

	return errors.Join(errs...)
}

// InstanceHost returns the hostname of the catalog instance
func (c *Config) InstanceHost() string {
	u, err := url.Parse(c.InstanceURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func instanceOrigin(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("invalid ATLAN_INSTANCE_URL %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid ATLAN_INSTANCE_URL %q: expected scheme and host, e.g. https://tenant.atlan.com", raw)
	}
	return u.Scheme + "://" + u.Host, nil
}

func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "0", "false", "no":
		return false
	default:
		return true
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

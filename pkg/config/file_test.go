package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileParsesFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultConfigFileYAML)
	content := `
atlan_instance_url: " https://tenant.atlan.com "
ignore_model_alias_matching: true
dbt_environment_branch_map: |
  main:prod
  beta:staging
exclude_models:
  - stg_*
  - ""
  - models/legacy/*
timeout: 2m
retry_attempts: 5
rate_limit: 20
concurrency: 3
downstream_page_size: 50
max_downstream_assets: 200
fail_on_auth_error: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	fc, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "https://tenant.atlan.com", fc.InstanceURL)
	assert.Equal(t, []string{"stg_*", "models/legacy/*"}, fc.ExcludeModels)
	assert.Equal(t, "2m", fc.Timeout)

	cfg := &Config{}
	require.NoError(t, fc.Apply(cfg))

	assert.Equal(t, "true", cfg.IgnoreAliasValue)
	assert.Equal(t, 2*time.Minute, cfg.HTTPTimeout)
	assert.Equal(t, 5, cfg.RetryAttempts)
	assert.Equal(t, 20, cfg.RateLimit)
	assert.Equal(t, 3, cfg.Concurrency)
	assert.Equal(t, 50, cfg.DownstreamPageSize)
	assert.Equal(t, 200, cfg.MaxDownstreamAssets)
	assert.True(t, cfg.FailOnAuthError)
	assert.Len(t, ParseEnvironmentBranchMap(cfg.EnvironmentBranchMap), 2)
}

func TestApplyRejectsBadTimeout(t *testing.T) {
	fc := &FileConfig{Timeout: "soon"}
	err := fc.Apply(&Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid timeout")
}

func TestApplyNilFileConfig(t *testing.T) {
	var fc *FileConfig
	cfg := &Config{Concurrency: 7}
	require.NoError(t, fc.Apply(cfg))
	assert.Equal(t, 7, cfg.Concurrency)
}

func TestAutoLoadFilePrefersCWD(t *testing.T) {
	cwd := t.TempDir()
	home := t.TempDir()

	cwdFile := filepath.Join(cwd, DefaultConfigFileYAML)
	homeFile := filepath.Join(home, DefaultConfigFileYAML)

	require.NoError(t, os.WriteFile(cwdFile, []byte("concurrency: 2\n"), 0o644))
	require.NoError(t, os.WriteFile(homeFile, []byte("concurrency: 9\n"), 0o644))

	t.Setenv("HOME", home)
	t.Chdir(cwd)

	fc, path, err := AutoLoadFile()
	require.NoError(t, err)
	require.NotNil(t, fc)
	require.NotNil(t, fc.Concurrency)
	assert.Equal(t, 2, *fc.Concurrency)
	assert.Equal(t, DefaultConfigFileYAML, path)
}

func TestLoadFirstExistingFileNoMatch(t *testing.T) {
	fc, path, err := LoadFirstExistingFile([]string{
		filepath.Join(t.TempDir(), "missing-1.yaml"),
		filepath.Join(t.TempDir(), "missing-2.yaml"),
	})
	require.NoError(t, err)
	assert.Nil(t, fc)
	assert.Empty(t, path)
}

func TestLoadFirstExistingFileRejectsDirectory(t *testing.T) {
	_, _, err := LoadFirstExistingFile([]string{t.TempDir()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is a directory")
}

func TestExcludePatternMatching(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExcludeModels = []string{"stg_*", " models/legacy/* ", ""}
	cfg.Normalize()

	assert.Equal(t, []string{"stg_*", "models/legacy/*"}, cfg.ExcludeModels)
	assert.True(t, cfg.IsModelExcluded("STG_orders", "models/staging/stg_orders.sql"))
	assert.True(t, cfg.IsModelExcluded("customers", "models/legacy/customers.sql"))
	assert.False(t, cfg.IsModelExcluded("orders", "models/marts/orders.sql"))
	assert.False(t, cfg.IsModelExcluded("", ""))
}

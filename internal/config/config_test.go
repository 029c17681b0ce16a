package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultGlobalConfig(t *testing.T) {
	cfg := NewDefaultGlobalConfig()

	assert.Equal(t, 3, cfg.CrawlerConfig.MaxDepth)
	assert.Equal(t, 100, cfg.CrawlerConfig.MaxPages)
	assert.Equal(t, 4, cfg.CrawlerConfig.Threads)
	assert.Equal(t, time.Second, cfg.CrawlerConfig.ScanDelayDuration())
	assert.Equal(t, 30*time.Second, cfg.HTTPConfig.RequestTimeoutDuration())
	assert.Equal(t, 3, cfg.HTTPConfig.MaxRetries)
	assert.True(t, cfg.HTTPConfig.VerifySSL)
	assert.True(t, cfg.HTTPConfig.FollowRedirects)
	assert.True(t, cfg.ChecksConfig.ScanXSS)
	assert.True(t, cfg.ChecksConfig.ScanSSRF)
	assert.False(t, cfg.ChecksConfig.StrictAccessControl)
	assert.Equal(t, 100, cfg.DetectionConfig.LengthDelta)
	assert.Equal(t, 2*time.Second, cfg.DetectionConfig.TimeThresholdDuration())
	assert.Equal(t, 500*time.Millisecond, cfg.DetectionConfig.PayloadDelayDuration())
	assert.Equal(t, "local", cfg.StorageConfig.Sink)

	require.NoError(t, ValidateConfig(cfg))
}

func TestLoadGlobalConfigYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
crawler_config:
  max_depth: 1
  max_pages: 10
http_config:
  verify_ssl: false
  user_agent: "custom-agent"
checks_config:
  scan_ssrf: false
storage_config:
  output_dir: out
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadGlobalConfig(path, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.CrawlerConfig.MaxDepth)
	assert.Equal(t, 10, cfg.CrawlerConfig.MaxPages)
	assert.False(t, cfg.HTTPConfig.VerifySSL)
	assert.Equal(t, "custom-agent", cfg.HTTPConfig.UserAgent)
	assert.False(t, cfg.ChecksConfig.ScanSSRF)
	// Untouched sections keep defaults.
	assert.Equal(t, 4, cfg.CrawlerConfig.Threads)
	assert.True(t, cfg.ChecksConfig.ScanXSS)
	assert.Equal(t, "out", cfg.StorageConfig.OutputDir)
}

func TestLoadGlobalConfigJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{"crawler_config": {"max_depth": 2, "threads": 8}}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadGlobalConfig(path, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.CrawlerConfig.MaxDepth)
	assert.Equal(t, 8, cfg.CrawlerConfig.Threads)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SCANNER_MAX_DEPTH", "7")
	t.Setenv("SCANNER_VERIFY_SSL", "false")
	t.Setenv("SCANNER_USER_AGENT", "env-agent")

	cfg, err := LoadGlobalConfig(filepath.Join(t.TempDir(), "missing.yaml"), zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.CrawlerConfig.MaxDepth)
	assert.False(t, cfg.HTTPConfig.VerifySSL)
	assert.Equal(t, "env-agent", cfg.HTTPConfig.UserAgent)
}

func TestEnvOverrideInvalidValueKeepsDefault(t *testing.T) {
	t.Setenv("SCANNER_MAX_DEPTH", "not-a-number")
	t.Setenv("SCANNER_VERIFY_SSL", "maybe")

	cfg, err := LoadGlobalConfig(filepath.Join(t.TempDir(), "missing.yaml"), zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, DefaultMaxDepth, cfg.CrawlerConfig.MaxDepth)
	assert.True(t, cfg.HTTPConfig.VerifySSL)
}

func TestValidateConfigRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*GlobalConfig)
	}{
		{
			name:   "negative max depth",
			mutate: func(c *GlobalConfig) { c.CrawlerConfig.MaxDepth = -1 },
		},
		{
			name:   "zero threads",
			mutate: func(c *GlobalConfig) { c.CrawlerConfig.Threads = 0 },
		},
		{
			name:   "proxy enabled without url",
			mutate: func(c *GlobalConfig) { c.HTTPConfig.UseProxy = true },
		},
		{
			name: "sqlite sink without path",
			mutate: func(c *GlobalConfig) {
				c.StorageConfig.Sink = "sqlite"
				c.StorageConfig.SQLitePath = ""
			},
		},
		{
			name:   "unknown sink",
			mutate: func(c *GlobalConfig) { c.StorageConfig.Sink = "postgres" },
		},
		{
			name:   "bad log level",
			mutate: func(c *GlobalConfig) { c.LogConfig.LogLevel = "verbose" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultGlobalConfig()
			tt.mutate(cfg)
			assert.Error(t, ValidateConfig(cfg))
		})
	}
}

func TestGetConfigPathPrefersExplicit(t *testing.T) {
	dir := t.TempDir()
	explicit := filepath.Join(dir, "mine.yaml")
	require.NoError(t, os.WriteFile(explicit, []byte("{}"), 0644))

	assert.Equal(t, explicit, GetConfigPath(explicit))
}

func TestGetConfigPathEnvFallback(t *testing.T) {
	dir := t.TempDir()
	envConfig := filepath.Join(dir, "env.yaml")
	require.NoError(t, os.WriteFile(envConfig, []byte("{}"), 0644))

	t.Setenv("SCANNER_CONFIG_PATH", envConfig)
	assert.Equal(t, envConfig, GetConfigPath(filepath.Join(dir, "does-not-exist.yaml")))
}

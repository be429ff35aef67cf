package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "job.scrape.request", cfg.Broker.RequestDestination)
	assert.Equal(t, "job.scrape.reply", cfg.Broker.ReplyPrefix)
	assert.Equal(t, 5, cfg.Pipeline.LookbackCapDays)
	assert.Equal(t, 30*time.Second, cfg.Pipeline.DefaultTimeout)
	assert.Equal(t, 300*time.Second, cfg.Pipeline.MaxTimeout)
	assert.Equal(t, time.Second, cfg.Pipeline.SweepInterval)
	assert.Equal(t, "claude", cfg.LLM.Provider)
	assert.True(t, cfg.Enrichment.Enabled)
}

func TestLoadConfig_FromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
server:
  port: 9090
broker:
  request_destination: test.scrape.request
pipeline:
  lookback_cap_days: 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "test.scrape.request", cfg.Broker.RequestDestination)
	assert.Equal(t, 3, cfg.Pipeline.LookbackCapDays)
	// Untouched sections keep defaults.
	assert.Equal(t, "job.scrape.reply", cfg.Broker.ReplyPrefix)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("BROKER_REQUEST_DESTINATION", "env.scrape.request")
	t.Setenv("REDIS_URL", "redis://example:6380")
	t.Setenv("ENRICHMENT_ENABLED", "false")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "env.scrape.request", cfg.Broker.RequestDestination)
	assert.Equal(t, "redis://example:6380", cfg.Redis.URL)
	assert.False(t, cfg.Enrichment.Enabled)
}

func TestLoadConfig_EnvVarExpansionInYAML(t *testing.T) {
	t.Setenv("TEST_DB_URL", "postgres://localhost/jobs")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
database:
  url: ${TEST_DB_URL}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/jobs", cfg.Database.URL)
}

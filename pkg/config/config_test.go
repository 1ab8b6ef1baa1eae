package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/japaniel/goodthings/pkg/apperr"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Pipeline.TopN)
	assert.Equal(t, 30, cfg.Pipeline.RecentLimit)
	assert.Equal(t, "ipa", cfg.Dictionary.System)
	assert.Equal(t, "0 6 1 * *", cfg.Schedule.Cron)
	assert.Equal(t, []string{"良かったこと１", "良かったこと２", "良かったこと３"}, cfg.Notion.TextProperties)
	assert.Equal(t, 2*time.Minute, cfg.Pipeline.Timeout)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
notion:
  database_id: 0f5c3a7e9b8d4c2a8e1f6a7b9c0d1e2f
pipeline:
  top_n: 10
  timeout: 45s
sheets:
  enabled: true
  spreadsheet_id: abc
`), 0o600))

	t.Setenv("GOODTHINGS_NOTION_TOKEN", "secret")
	t.Setenv("GOODTHINGS_PIPELINE_TOP_N", "3")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.Notion.Token)
	assert.Equal(t, "0f5c3a7e9b8d4c2a8e1f6a7b9c0d1e2f", cfg.Notion.DatabaseID)
	assert.Equal(t, 3, cfg.Pipeline.TopN, "environment wins over the file")
	assert.Equal(t, 45*time.Second, cfg.Pipeline.Timeout)
	assert.True(t, cfg.Sheets.Enabled)
}

func TestLoadLegacyEnvNames(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("NOTION_TOKEN", "legacy")
	t.Setenv("DATABASE_ID", "db")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "legacy", cfg.Notion.Token)
	assert.Equal(t, "db", cfg.Notion.DatabaseID)
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateNamesField(t *testing.T) {
	tests := map[string]func(*Config){
		"database.driver":       func(c *Config) { c.Database.Driver = "mysql" },
		"dictionary.source":     func(c *Config) { c.Dictionary.Source = "s3" },
		"pipeline.top_n":        func(c *Config) { c.Pipeline.TopN = -1 },
		"pipeline.recent_limit": func(c *Config) { c.Pipeline.RecentLimit = 0 },
		"sheets.spreadsheet_id": func(c *Config) { c.Sheets.Enabled = true },
	}
	for field, mutate := range tests {
		t.Run(field, func(t *testing.T) {
			chdir(t, t.TempDir())
			cfg, err := Load(viper.New(), "")
			require.NoError(t, err)

			mutate(cfg)
			err = cfg.Validate()
			require.ErrorIs(t, err, apperr.ErrConfiguration)
			assert.Contains(t, err.Error(), field)
		})
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, []string{"INBOX"}, cfg.Labels)
	assert.Equal(t, 10, cfg.MaxResults)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, "email_results.json", cfg.Output)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero max results", func(c *Config) { c.MaxResults = 0 }},
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"empty output", func(c *Config) { c.Output = "" }},
		{"bad token store", func(c *Config) { c.TokenStore = "vault" }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveAndLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "config.yaml")
	cfg := DefaultConfig()
	cfg.Query = "from:jobs-noreply@linkedin.com"
	cfg.MaxResults = 250
	cfg.Labels = []string{"INBOX", "IMPORTANT"}
	require.NoError(t, cfg.Save(path))

	loaded := DefaultConfig()
	require.NoError(t, LoadFile(path, &loaded))
	assert.Equal(t, cfg, loaded)
}

func TestLoadFile_MissingIsFine(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, LoadFile(filepath.Join(t.TempDir(), "nope.yaml"), &cfg))
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_results: [oops"), 0o600))
	cfg := DefaultConfig()
	assert.Error(t, LoadFile(path, &cfg))
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"MAILBUCKET_MAX_RESULTS":  "42",
		"MAILBUCKET_LABELS":       "INBOX, CATEGORY_UPDATES ,",
		"MAILBUCKET_HTML_TO_TEXT": "true",
		"MAILBUCKET_QUERY":        "has:attachment",
	}
	lookup := func(k string) (string, bool) { v, ok := env[k]; return v, ok }

	cfg := DefaultConfig()
	require.NoError(t, applyEnv(&cfg, lookup))
	assert.Equal(t, 42, cfg.MaxResults)
	assert.Equal(t, []string{"INBOX", "CATEGORY_UPDATES"}, cfg.Labels)
	assert.True(t, cfg.HTMLToText)
	assert.Equal(t, "has:attachment", cfg.Query)
	assert.Equal(t, 1, cfg.Workers)
}

func TestApplyEnv_BadNumber(t *testing.T) {
	lookup := func(k string) (string, bool) {
		if k == "MAILBUCKET_WORKERS" {
			return "many", true
		}
		return "", false
	}
	cfg := DefaultConfig()
	assert.Error(t, applyEnv(&cfg, lookup))
}

func TestLoad_FlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	fileCfg := DefaultConfig()
	fileCfg.MaxResults = 99
	fileCfg.Query = "from:file"
	require.NoError(t, fileCfg.Save(FilePath(dir)))

	var got Config
	cmd := &cobra.Command{
		Use: "fetch",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			got, err = Load(cmd)
			return err
		},
	}
	RegisterFlags(cmd)
	RegisterFetchFlags(cmd)
	cmd.SetArgs([]string{"--config-dir", dir, "--max-results", "5", "--label", "SENT"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, dir, got.ConfigDir)
	assert.Equal(t, 5, got.MaxResults)
	assert.Equal(t, "from:file", got.Query)
	assert.Equal(t, []string{"SENT"}, got.Labels)
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	AppName   = "mailbucket"
	EnvPrefix = "MAILBUCKET_"
)

// Config captures everything a fetch run needs.
type Config struct {
	ConfigDir      string   `yaml:"config_dir"`
	Labels         []string `yaml:"labels"`
	Query          string   `yaml:"query"`
	MaxResults     int      `yaml:"max_results"`
	Workers        int      `yaml:"workers"`
	Output         string   `yaml:"output"`
	AttachmentsDir string   `yaml:"attachments_dir"`
	ArchiveDB      string   `yaml:"archive_db"`
	HTMLToText     bool     `yaml:"html_to_text"`
	LogLevel       string   `yaml:"log_level"`
	LogFile        string   `yaml:"log_file"`
	TokenStore     string   `yaml:"token_store"`
	TUI            bool     `yaml:"tui"`
}

// DefaultConfig mirrors a plain run: ten INBOX messages, sequential fetch.
func DefaultConfig() Config {
	dir, err := DefaultConfigDir()
	if err != nil {
		dir = "." + AppName
	}
	return Config{
		ConfigDir:      dir,
		Labels:         []string{"INBOX"},
		MaxResults:     10,
		Workers:        1,
		Output:         "email_results.json",
		AttachmentsDir: "attachments",
		LogLevel:       "info",
		TokenStore:     "file",
	}
}

func DefaultConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(dir, AppName), nil
}

// FilePath is where the optional YAML config lives inside dir.
func FilePath(dir string) string {
	return filepath.Join(dir, "config.yaml")
}

// LoadFile overlays the YAML file at path onto cfg. A missing file is not an
// error.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

// Save writes cfg as YAML to path.
func (c Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// LoadEnv reads .env files (if present) into the process environment and
// overlays MAILBUCKET_* variables onto cfg.
func LoadEnv(cfg *Config, files ...string) error {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) > 0 {
		if err := godotenv.Load(existing...); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
	}
	return applyEnv(cfg, os.LookupEnv)
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	num := func(name string, dst *int) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = n
		return nil
	}
	boolean := func(name string, dst *bool) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = b
		return nil
	}

	str("CONFIG_DIR", &cfg.ConfigDir)
	str("QUERY", &cfg.Query)
	str("OUTPUT", &cfg.Output)
	str("ATTACHMENTS_DIR", &cfg.AttachmentsDir)
	str("ARCHIVE_DB", &cfg.ArchiveDB)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOG_FILE", &cfg.LogFile)
	str("TOKEN_STORE", &cfg.TokenStore)
	if v, ok := lookup(EnvPrefix + "LABELS"); ok {
		cfg.Labels = splitList(v)
	}
	if err := num("MAX_RESULTS", &cfg.MaxResults); err != nil {
		return err
	}
	if err := num("WORKERS", &cfg.Workers); err != nil {
		return err
	}
	if err := boolean("HTML_TO_TEXT", &cfg.HTMLToText); err != nil {
		return err
	}
	return boolean("TUI", &cfg.TUI)
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate rejects settings a run cannot use.
func (c Config) Validate() error {
	if c.MaxResults < 1 {
		return fmt.Errorf("max-results must be at least 1, got %d", c.MaxResults)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.Output == "" {
		return errors.New("output path must not be empty")
	}
	switch c.TokenStore {
	case "file", "keyring":
	default:
		return fmt.Errorf("token-store must be file or keyring, got %q", c.TokenStore)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log-level must be debug, info, warn or error, got %q", c.LogLevel)
	}
	return nil
}

// RegisterFlags attaches the shared flags to cmd's persistent flag set and
// the fetch flags to its local set.
func RegisterFlags(cmd *cobra.Command) {
	def := DefaultConfig()
	pf := cmd.PersistentFlags()
	pf.String("config-dir", def.ConfigDir, "Directory holding client_secret.json, token.json and config.yaml")
	pf.String("log-level", def.LogLevel, "Logging level: debug, info, warn, error")
	pf.String("log-file", "", "Write logs to this file instead of stderr")
	pf.String("token-store", def.TokenStore, "Where the OAuth token is kept: file or keyring")
}

// RegisterFetchFlags attaches the flags of the fetch command.
func RegisterFetchFlags(cmd *cobra.Command) {
	def := DefaultConfig()
	f := cmd.Flags()
	f.StringSlice("label", def.Labels, "Label ids to list (repeatable)")
	f.String("query", "", `Gmail search query, e.g. "from:jobs-noreply@linkedin.com"`)
	f.Int("max-results", def.MaxResults, "Maximum number of messages to fetch")
	f.Int("workers", def.Workers, "Concurrent message fetches (1 = sequential)")
	f.StringP("output", "o", def.Output, "Results JSON file")
	f.String("attachments-dir", def.AttachmentsDir, "Directory for downloaded attachments")
	f.String("archive-db", "", "SQLite database that archives every run (disabled when empty)")
	f.Bool("html-to-text", false, "Convert HTML bodies to plain text")
	f.Bool("tui", false, "Show an interactive progress view")
}

// Load builds the effective config: defaults, then config.yaml, then .env and
// MAILBUCKET_* variables, then flags the user set explicitly.
func Load(cmd *cobra.Command) (Config, error) {
	cfg := DefaultConfig()
	flags := cmd.Flags()

	if flags.Changed("config-dir") {
		dir, err := flags.GetString("config-dir")
		if err != nil {
			return Config{}, err
		}
		cfg.ConfigDir = dir
	}
	if err := LoadFile(FilePath(cfg.ConfigDir), &cfg); err != nil {
		return Config{}, err
	}
	if err := LoadEnv(&cfg, ".env", filepath.Join(cfg.ConfigDir, ".env")); err != nil {
		return Config{}, err
	}

	var err error
	setString := func(name string, dst *string) {
		if err == nil && flags.Lookup(name) != nil && flags.Changed(name) {
			*dst, err = flags.GetString(name)
		}
	}
	setInt := func(name string, dst *int) {
		if err == nil && flags.Lookup(name) != nil && flags.Changed(name) {
			*dst, err = flags.GetInt(name)
		}
	}
	setBool := func(name string, dst *bool) {
		if err == nil && flags.Lookup(name) != nil && flags.Changed(name) {
			*dst, err = flags.GetBool(name)
		}
	}

	setString("config-dir", &cfg.ConfigDir)
	setString("log-level", &cfg.LogLevel)
	setString("log-file", &cfg.LogFile)
	setString("token-store", &cfg.TokenStore)
	setString("query", &cfg.Query)
	setString("output", &cfg.Output)
	setString("attachments-dir", &cfg.AttachmentsDir)
	setString("archive-db", &cfg.ArchiveDB)
	setInt("max-results", &cfg.MaxResults)
	setInt("workers", &cfg.Workers)
	setBool("html-to-text", &cfg.HTMLToText)
	setBool("tui", &cfg.TUI)
	if err == nil && flags.Lookup("label") != nil && flags.Changed("label") {
		cfg.Labels, err = flags.GetStringSlice("label")
	}
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

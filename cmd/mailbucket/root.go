package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"mailbucket/internal/config"
	"mailbucket/internal/gmail"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           config.AppName,
		Short:         "Fetch Gmail messages and group them by the day they were sent",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.RegisterFlags(root)
	root.AddCommand(newFetchCmd(), newAuthCmd(), newReportCmd(), newConfigCmd())
	return root
}

// loadConfig layers defaults, config.yaml, the environment and flags, then
// validates the result.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(cmd)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// newLogger writes to stderr, or to a file when one is configured or when
// the terminal is owned by the progress view.
func newLogger(cfg config.Config, stderr io.Writer, ownTerminal bool) (*log.Logger, func() error, error) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() error { return nil }

	w := stderr
	path := cfg.LogFile
	if path == "" && ownTerminal {
		path = filepath.Join(cfg.ConfigDir, config.AppName+".log")
	}
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		cleanup = f.Close
	}

	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Level:           level,
	})
	return logger, cleanup, nil
}

func tokenStore(cfg config.Config) gmail.TokenStore {
	if cfg.TokenStore == "keyring" {
		return gmail.KeyringTokenStore{Service: config.AppName, User: "gmail-token"}
	}
	return gmail.FileTokenStore{Path: filepath.Join(cfg.ConfigDir, "token.json")}
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

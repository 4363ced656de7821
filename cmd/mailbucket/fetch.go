package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"mailbucket/internal/bucket"
	"mailbucket/internal/config"
	"mailbucket/internal/gmail"
	"mailbucket/internal/model"
	"mailbucket/internal/pipeline"
	"mailbucket/internal/progress"
	"mailbucket/internal/store"
	"mailbucket/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

func newFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch messages and write them grouped by day to a JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, closeLog, err := newLogger(cfg, cmd.ErrOrStderr(), cfg.TUI)
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, stop := signalContext(cmd.Context())
			defer stop()
			return runFetch(ctx, cfg, logger, cmd.OutOrStdout())
		},
	}
	config.RegisterFetchFlags(cmd)
	return cmd
}

func runFetch(ctx context.Context, cfg config.Config, logger *log.Logger, out io.Writer) error {
	oauthCfg, err := gmail.OAuthConfig(cfg.ConfigDir)
	if err != nil {
		return err
	}
	svc, account, err := gmail.NewService(ctx, oauthCfg, tokenStore(cfg), logger)
	if err != nil {
		return fmt.Errorf("gmail client: %w", err)
	}
	logger.Info("authorized", "account", account)

	p := &pipeline.Pipeline{
		API:    gmail.NewAPI(svc, gmail.DefaultRetryPolicy(logger)),
		Logger: logger,
		Options: pipeline.Options{
			LabelIDs:       cfg.Labels,
			Query:          cfg.Query,
			MaxResults:     cfg.MaxResults,
			Workers:        cfg.Workers,
			OutputPath:     cfg.Output,
			AttachmentsDir: cfg.AttachmentsDir,
			Body:           gmail.BodyOptions{HTMLToText: cfg.HTMLToText},
		},
	}
	if cfg.ArchiveDB != "" {
		db, err := store.NewSQLiteStore(cfg.ArchiveDB)
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		defer db.Close()
		p.Archive = db
	}

	var summary model.Summary
	if cfg.TUI {
		summary, err = runWithTUI(ctx, p)
	} else {
		p.OnProgress = logProgress(logger)
		var outcome pipeline.Outcome
		outcome, err = p.Run(ctx)
		summary = outcome.Summary
	}
	if err != nil {
		if errors.Is(err, gmail.ErrAuthExpired) {
			return fmt.Errorf("%w; run `%s auth` to sign in again", err, config.AppName)
		}
		return err
	}

	fmt.Fprintf(out, "Saved %d emails in %d days to %s (%d skipped)\n",
		summary.Processed, summary.Buckets, summary.Output, summary.Skipped)
	return nil
}

func logProgress(logger *log.Logger) func(model.FetchProgress) {
	return func(p model.FetchProgress) {
		eta := p.ETA
		if p.Calculating {
			eta = progress.Calculating
		}
		logger.Info("progress",
			"processed", fmt.Sprintf("%d/%d", p.Processed, p.Total),
			"speed", progress.Speed(p),
			"remaining", p.Remaining,
			"eta", eta,
		)
	}
}

func runWithTUI(ctx context.Context, p *pipeline.Pipeline) (model.Summary, error) {
	run := func(ctx context.Context, onProgress func(model.FetchProgress)) (bucket.Result, model.Summary, error) {
		p.OnProgress = onProgress
		outcome, err := p.Run(ctx)
		return outcome.Result, outcome.Summary, err
	}
	m := tui.NewAppModel(ctx, run)
	prog := tea.NewProgram(&m, tea.WithAltScreen(), tea.WithContext(ctx))
	m.SetProgram(prog)
	final, err := prog.Run()
	if err != nil {
		return model.Summary{}, err
	}
	fm, ok := final.(*tui.AppModel)
	if !ok {
		return model.Summary{}, errors.New("unexpected tui model")
	}
	if fm.Err != nil {
		return model.Summary{}, fm.Err
	}
	if !fm.Finished() {
		return model.Summary{}, context.Canceled
	}
	return fm.Summary(), nil
}

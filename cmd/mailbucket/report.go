package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mailbucket/internal/bucket"
	"mailbucket/internal/config"
	"mailbucket/internal/model"
	"mailbucket/internal/report"
	"mailbucket/internal/store"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func newReportCmd() *cobra.Command {
	var (
		input    string
		session  string
		phrase   string
		by       string
		top      int
		byDomain bool
		history  bool
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize a results file: matching subjects over time and top senders",
		Long: "Reads the results file written by fetch, or an archived run when --session\n" +
			"names one (a prefix as shown by --history is enough).",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			ctx := cmd.Context()

			g := report.Granularity(by)
			switch g {
			case "", report.Day, report.Week, report.Month, report.Quarter, report.Year:
			default:
				return fmt.Errorf("--by must be day, week, month, quarter or year, got %q", by)
			}

			if history || session != "" {
				if cfg.ArchiveDB == "" {
					return fmt.Errorf("--history and --session need --archive-db or archive_db in %s", config.FilePath(cfg.ConfigDir))
				}
				if history && session != "" {
					return errors.New("--history and --session cannot be combined")
				}
			}

			var result bucket.Result
			switch {
			case history:
				db, err := store.NewSQLiteStore(cfg.ArchiveDB)
				if err != nil {
					return fmt.Errorf("open archive: %w", err)
				}
				defer db.Close()
				runs, err := db.ListRuns(ctx)
				if err != nil {
					return err
				}
				archived, err := db.CountMessages(ctx)
				if err != nil {
					return err
				}
				return report.WriteHistory(out, runs, archived)

			case session != "":
				db, err := store.NewSQLiteStore(cfg.ArchiveDB)
				if err != nil {
					return fmt.Errorf("open archive: %w", err)
				}
				defer db.Close()
				if result, err = loadSession(ctx, db, session); err != nil {
					return err
				}

			default:
				path := input
				if path == "" {
					path = cfg.Output
				}
				if result, err = bucket.ReadFile(path); err != nil {
					return err
				}
			}

			if err := report.WriteCounts(out, report.CountPhrase(result, phrase), g); err != nil {
				return err
			}
			if top <= 0 {
				return nil
			}
			fmt.Fprintln(out)
			senders := report.TopSenders(result, top)
			if byDomain {
				senders = report.TopSenderDomains(result, top)
			}
			return report.WriteSenders(out, senders, byDomain)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&input, "input", "i", "", "Results JSON file (defaults to the configured output)")
	f.StringVar(&session, "session", "", "Report on an archived run instead of a results file")
	f.StringVar(&phrase, "phrase", report.DefaultPhrase, "Case-insensitive subject phrase to count")
	f.StringVar(&by, "by", "", "Period: day, week, month, quarter or year (auto when empty)")
	f.IntVar(&top, "top", 10, "Number of top senders to list (0 to skip)")
	f.BoolVar(&byDomain, "by-domain", false, "Rank sender domains instead of addresses")
	f.BoolVar(&history, "history", false, "List archived runs instead")
	f.String("archive-db", "", "SQLite archive written by fetch --archive-db")
	return cmd
}

// loadSession resolves a full or abbreviated session ID against the archive.
func loadSession(ctx context.Context, db *store.SQLiteStore, id string) (bucket.Result, error) {
	runs, err := db.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	matches := lo.Filter(runs, func(r model.Summary, _ int) bool {
		return strings.HasPrefix(r.SessionID, id)
	})
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no archived run matches session %q", id)
	case 1:
		return db.LoadRun(ctx, matches[0].SessionID)
	default:
		return nil, fmt.Errorf("session %q is ambiguous: %d runs match", id, len(matches))
	}
}

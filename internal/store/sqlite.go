package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mailbucket/internal/bucket"
	"mailbucket/internal/model"

	"github.com/samber/lo"
	_ "modernc.org/sqlite"
)

// SQLiteStore archives finished runs and their records in a local SQLite
// database. It implements pipeline.Archive.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at the given path and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS runs (
	session_id TEXT PRIMARY KEY,
	started    TEXT NOT NULL,
	finished   TEXT NOT NULL,
	listed     INTEGER NOT NULL DEFAULT 0,
	processed  INTEGER NOT NULL DEFAULT 0,
	skipped    INTEGER NOT NULL DEFAULT 0,
	buckets    INTEGER NOT NULL DEFAULT 0,
	output     TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS messages (
	session_id  TEXT NOT NULL,
	id          TEXT NOT NULL,
	bucket      TEXT NOT NULL,
	position    INTEGER NOT NULL,
	subject     TEXT NOT NULL DEFAULT '',
	from_addr   TEXT NOT NULL DEFAULT '',
	to_addr     TEXT NOT NULL DEFAULT '',
	date        TEXT NOT NULL DEFAULT '',
	body        TEXT NOT NULL DEFAULT '',
	attachments TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (session_id, id)
);
`
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// attachmentSep joins attachment names in one column; file names cannot
// contain a NUL byte.
const attachmentSep = "\x00"

// SaveRun stores the run summary and every record of result in one
// transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, summary model.Summary, result bucket.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (session_id, started, finished, listed, processed, skipped, buckets, output)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			finished  = excluded.finished,
			listed    = excluded.listed,
			processed = excluded.processed,
			skipped   = excluded.skipped,
			buckets   = excluded.buckets,
			output    = excluded.output
	`, summary.SessionID, summary.Started.UTC().Format(time.RFC3339), summary.Finished.UTC().Format(time.RFC3339),
		summary.Listed, summary.Processed, summary.Skipped, summary.Buckets, summary.Output)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages (session_id, id, bucket, position, subject, from_addr, to_addr, date, body, attachments)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, id) DO UPDATE SET
			bucket      = excluded.bucket,
			position    = excluded.position,
			subject     = excluded.subject,
			from_addr   = excluded.from_addr,
			to_addr     = excluded.to_addr,
			date        = excluded.date,
			body        = excluded.body,
			attachments = excluded.attachments
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	pos := 0
	for _, b := range result {
		for _, r := range b.Records {
			date := ""
			if r.Date != nil {
				date = r.Date.Format(time.RFC3339)
			}
			_, err := stmt.ExecContext(ctx, summary.SessionID, r.ID, b.Key, pos, r.Subject, r.From, r.To, date, r.Body,
				strings.Join(r.Attachments, attachmentSep))
			if err != nil {
				return fmt.Errorf("insert message %s: %w", r.ID, err)
			}
			pos++
		}
	}
	return tx.Commit()
}

// ListRuns returns archived runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context) ([]model.Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT session_id, started, finished, listed, processed, skipped, buckets, output FROM runs ORDER BY started DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []model.Summary
	for rows.Next() {
		var r model.Summary
		var started, finished string
		if err := rows.Scan(&r.SessionID, &started, &finished, &r.Listed, &r.Processed, &r.Skipped, &r.Buckets, &r.Output); err != nil {
			return nil, err
		}
		r.Started, _ = time.Parse(time.RFC3339, started)
		r.Finished, _ = time.Parse(time.RFC3339, finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LoadRun rebuilds the result of an archived run in its original order.
func (s *SQLiteStore) LoadRun(ctx context.Context, sessionID string) (bucket.Result, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT bucket, id, subject, from_addr, to_addr, date, body, attachments
		FROM messages WHERE session_id = ? ORDER BY position`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result bucket.Result
	index := map[string]int{}
	for rows.Next() {
		var key, date, attachments string
		var r model.MessageRecord
		if err := rows.Scan(&key, &r.ID, &r.Subject, &r.From, &r.To, &date, &r.Body, &attachments); err != nil {
			return nil, err
		}
		if date != "" {
			if t, err := time.Parse(time.RFC3339, date); err == nil {
				r.Date = &t
			}
		}
		r.Attachments = lo.Filter(strings.Split(attachments, attachmentSep), func(name string, _ int) bool {
			return name != ""
		})
		i, ok := index[key]
		if !ok {
			i = len(result)
			index[key] = i
			result = append(result, bucket.Bucket{Key: key})
		}
		result[i].Records = append(result[i].Records, r)
	}
	return result, rows.Err()
}

// CountMessages reports how many records are archived across all runs.
func (s *SQLiteStore) CountMessages(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM messages").Scan(&count)
	return count, err
}

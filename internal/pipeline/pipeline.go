// Package pipeline runs a fetch: list message ids, fetch each message,
// group the records by day and write the results document.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"mailbucket/internal/bucket"
	"mailbucket/internal/gmail"
	"mailbucket/internal/model"
	"mailbucket/internal/progress"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Archive receives a copy of every finished run. Implementations persist
// history only; a run never reads it back.
type Archive interface {
	SaveRun(ctx context.Context, summary model.Summary, result bucket.Result) error
}

// Options configures a Pipeline.
type Options struct {
	LabelIDs       []string
	Query          string
	MaxResults     int
	Workers        int
	OutputPath     string
	AttachmentsDir string
	Body           gmail.BodyOptions
}

// Pipeline holds the collaborators of a run. Every field except API and
// Logger has a usable default.
type Pipeline struct {
	API     gmail.API
	Logger  *log.Logger
	Options Options

	// Now is the clock used for progress estimates.
	Now func() time.Time
	// NewSink returns where attachments of a session are written.
	NewSink func(sessionDir string) gmail.AttachmentSink
	// WriteResult persists the finalized aggregation.
	WriteResult func(path string, r bucket.Result) error
	// OnProgress is called after every processed or skipped message.
	OnProgress func(model.FetchProgress)
	// Archive, when set, stores the run after the results file is written.
	Archive Archive
}

// Outcome is what a run produced. Result is populated even when writing the
// results file failed.
type Outcome struct {
	Summary model.Summary
	Result  bucket.Result
	// ListingErr is set when listing failed and the run was treated as empty.
	ListingErr error
	// Skipped holds the per-message fetch failures, keyed by message id.
	Skipped map[string]error
}

// Run executes one fetch. The returned error is non-nil when the run could not
// start (expired credentials, canceled context) or the results file could not
// be written; in the latter case the Outcome is still complete.
func (p *Pipeline) Run(ctx context.Context) (Outcome, error) {
	if p.API == nil {
		return Outcome{}, errors.New("pipeline: API is required")
	}
	p.defaults()
	opts := p.Options
	sessionID := uuid.NewString()
	out := Outcome{
		Summary: model.Summary{SessionID: sessionID, Output: opts.OutputPath, Started: p.Now()},
		Skipped: map[string]error{},
	}
	logger := p.Logger.With("session", sessionID)

	listing, err := gmail.ListMessageIDs(ctx, p.API, gmail.ListOptions{
		LabelIDs:   opts.LabelIDs,
		Query:      opts.Query,
		MaxResults: opts.MaxResults,
	})
	switch {
	case errors.Is(err, gmail.ErrAuthExpired), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return out, err
	case err != nil:
		var le *gmail.ListingError
		if !errors.As(err, &le) {
			return out, err
		}
		logger.Error("listing failed, treating mailbox as empty", "error", err)
		out.ListingErr = err
	default:
		logger.Info("listed messages", "count", len(listing.IDs), "estimate", listing.Estimate, "pages", listing.Pages)
	}
	out.Summary.Listed = len(listing.IDs)

	sink := p.NewSink(filepath.Join(opts.AttachmentsDir, sessionID))
	records, err := p.fetchAll(ctx, logger, listing.IDs, sink, out.Skipped)
	if err != nil {
		return out, err
	}

	agg := bucket.NewAggregator()
	for _, rec := range records {
		if rec != nil {
			agg.Add(*rec)
		}
	}
	out.Result = agg.Finalize()
	out.Summary.Processed = agg.Len()
	out.Summary.Skipped = len(out.Skipped)
	out.Summary.Buckets = len(out.Result)

	if err := p.WriteResult(opts.OutputPath, out.Result); err != nil {
		out.Summary.Finished = p.Now()
		logger.Error("writing results failed", "path", opts.OutputPath, "error", err)
		return out, fmt.Errorf("write results: %w", err)
	}
	out.Summary.Finished = p.Now()
	logger.Info("results written", "path", opts.OutputPath, "buckets", out.Summary.Buckets,
		"processed", out.Summary.Processed, "skipped", out.Summary.Skipped)

	if p.Archive != nil {
		if err := p.Archive.SaveRun(ctx, out.Summary, out.Result); err != nil {
			logger.Warn("archiving run failed", "error", err)
		}
	}
	return out, nil
}

func (p *Pipeline) defaults() {
	if p.Logger == nil {
		p.Logger = log.Default()
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	if p.NewSink == nil {
		p.NewSink = func(dir string) gmail.AttachmentSink { return gmail.DirSink{Dir: dir} }
	}
	if p.WriteResult == nil {
		p.WriteResult = bucket.WriteFile
	}
	if p.OnProgress == nil {
		p.OnProgress = func(model.FetchProgress) {}
	}
	if p.Options.Workers < 1 {
		p.Options.Workers = 1
	}
	if p.Options.OutputPath == "" {
		p.Options.OutputPath = bucket.DefaultFileName
	}
}

// fetchAll returns one slot per id in listing order; skipped ids leave a nil
// slot. Progress is reported as each id finishes.
func (p *Pipeline) fetchAll(ctx context.Context, logger *log.Logger, ids []string, sink gmail.AttachmentSink, skipped map[string]error) ([]*model.MessageRecord, error) {
	slots := make([]*model.MessageRecord, len(ids))
	tracker := progress.NewTracker(p.Now)
	recOpts := gmail.RecordOptions{
		Attachments: p.API,
		Sink:        sink,
		Body:        p.Options.Body,
		Logger:      logger,
	}

	var mu sync.Mutex
	done := 0
	finish := func(i int, rec model.MessageRecord, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			logger.Error("skipping message", "id", ids[i], "error", err)
			skipped[ids[i]] = err
		} else {
			slots[i] = &rec
		}
		done++
		p.OnProgress(tracker.Update(done, len(ids)))
	}

	if p.Options.Workers == 1 {
		for i, id := range ids {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			rec, err := gmail.FetchRecord(ctx, p.API, id, recOpts)
			finish(i, rec, err)
		}
		return slots, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Options.Workers)
	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, err := gmail.FetchRecord(gctx, p.API, id, recOpts)
			finish(i, rec, err)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slots, nil
}

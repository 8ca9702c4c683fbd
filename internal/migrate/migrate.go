// Package migrate drives a full Trac → git migration run.
package migrate

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"

	"github.com/Napageneral/trac2gollum/internal/gitrepo"
	"github.com/Napageneral/trac2gollum/internal/history"
	"github.com/Napageneral/trac2gollum/internal/logging"
)

// Revisions is the ordered revision stream.
type Revisions interface {
	All(ctx context.Context) iter.Seq2[history.ConvertedRevision, error]
}

// Committer persists revisions.
type Committer interface {
	Apply(ctx context.Context, rev history.ConvertedRevision) (gitrepo.Result, error)
	Compact(ctx context.Context) error
}

// Options tunes a run.
type Options struct {
	DryRun  bool
	Compact bool
}

// Report summarizes a run.
type Report struct {
	RunID     string         `json:"run_id"`
	DryRun    bool           `json:"dry_run"`
	Pages     int            `json:"pages"`
	Revisions int            `json:"revisions"`
	Commits   int            `json:"commits"`
	Fallbacks int            `json:"fallbacks"`
	Compacted bool           `json:"compacted"`
	Metrics   map[string]any `json:"metrics"`
}

// Run commits every revision from revs in order, then compacts the
// repository. The first error stops the run; commits already made are kept.
func Run(ctx context.Context, revs Revisions, com Committer, opts Options, log logging.Logger) (Report, error) {
	if log == nil {
		log = logging.NoOp()
	}
	metrics := NewMetrics()
	report := Report{RunID: uuid.NewString(), DryRun: opts.DryRun}
	start := time.Now()

	finish := func(err error) (Report, error) {
		metrics.Finish(time.Since(start))
		report.Revisions = metrics.Revisions
		report.Commits = metrics.Committed
		report.Fallbacks = metrics.Fallbacks
		report.Metrics = metrics.Snapshot()
		if err != nil {
			log.Error("migration aborted", "run_id", report.RunID, "error", err.Error())
		} else {
			log.Info("migration finished", "run_id", report.RunID, "metrics", string(metrics.SnapshotJSON()))
		}
		return report, err
	}

	log.Info("migration started", "run_id", report.RunID, "dry_run", opts.DryRun)

	waited := time.Now()
	for rev, err := range revs.All(ctx) {
		ev := RevisionEvent{Read: time.Since(waited), Final: rev.Final}
		if err != nil {
			return finish(fmt.Errorf("read trac revisions: %w", err))
		}
		if rev.Final {
			report.Pages++
		}

		if opts.DryRun {
			ev.Outcome = "skipped"
			metrics.RecordRevision(ev)
			log.Info("would commit", "page", rev.Page, "version", rev.Version, "final", rev.Final,
				"author", rev.Author, "date", rev.Date)
			waited = time.Now()
			continue
		}

		res, err := com.Apply(ctx, rev)
		ev.Write, ev.Commit, ev.Fallback = res.Write, res.Commit, res.Fallback
		if err != nil {
			ev.Outcome = "error"
			metrics.RecordRevision(ev)
			return finish(err)
		}
		ev.Outcome = "ok"
		metrics.RecordRevision(ev)
		log.Info("committed", "page", rev.Page, "version", rev.Version, "final", rev.Final, "path", res.Path)
		waited = time.Now()
	}

	if opts.DryRun || !opts.Compact {
		return finish(nil)
	}

	compactStart := time.Now()
	if err := com.Compact(ctx); err != nil {
		return finish(err)
	}
	metrics.RecordCompact(time.Since(compactStart))
	report.Compacted = true
	log.Info("repository compacted", "run_id", report.RunID)

	return finish(nil)
}

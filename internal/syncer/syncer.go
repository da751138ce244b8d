// Package syncer drives incremental fetch-and-store cycles against the
// paper store.
package syncer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/paperdesk/paperdesk/internal/feed"
	"github.com/paperdesk/paperdesk/internal/model"
	"github.com/paperdesk/paperdesk/internal/resilience"
	"github.com/paperdesk/paperdesk/internal/store"
)

// Status is the outcome class of a sync run.
type Status string

const (
	StatusNewPapers Status = "new_papers"
	StatusUpToDate  Status = "up_to_date"
	StatusError     Status = "error"
)

// Options configures one sync run.
type Options struct {
	Category string        // arXiv category id, e.g. "cs.AI"
	Window   time.Duration // lookback window used only when the store is empty
	Limit    int           // max candidates persisted per run
}

// Report summarizes a sync run. Failure surfaces as Status=error with a
// message; the method itself only errors when the sync history cannot be
// recorded at all.
type Report struct {
	Status          Status            `json:"status"`
	Message         string            `json:"message"`
	Fetched         int               `json:"fetched"`
	NewPapers       int               `json:"new_papers"`
	UpsertErrors    int               `json:"upsert_errors,omitempty"`
	LatestTimestamp *time.Time        `json:"latest_timestamp,omitempty"`
	Stats           *model.StoreStats `json:"stats,omitempty"`
}

// Syncer reads the store's high-water mark and ingests strictly newer
// feed entries.
type Syncer struct {
	store  store.Store
	source feed.Source
}

// New creates a Syncer.
func New(st store.Store, source feed.Source) *Syncer {
	return &Syncer{store: st, source: source}
}

// Sync runs one fetch-and-store cycle. Records already persisted before a
// mid-run failure stay persisted; re-running is idempotent because upsert is
// keyed by arxiv id.
func (s *Syncer) Sync(ctx context.Context, opts Options) *Report {
	log := zap.L().With(
		zap.String("component", "syncer"),
		zap.String("category", opts.Category),
	)

	runID, err := s.store.StartSyncRun(ctx, opts.Category)
	if err != nil {
		return errorReport(err, "start sync run")
	}

	report := s.run(ctx, opts, log)

	if report.Status == StatusError {
		if err := s.store.FailSyncRun(ctx, runID, report.Message); err != nil {
			log.Error("failed to record sync failure", zap.Error(err))
		}
	} else {
		if err := s.store.CompleteSyncRun(ctx, runID, report.NewPapers); err != nil {
			log.Error("failed to record sync completion", zap.Error(err))
		}
	}

	if stats, err := s.store.Stats(ctx); err != nil {
		log.Warn("failed to read store stats", zap.Error(err))
	} else {
		report.Stats = stats
	}
	return report
}

func (s *Syncer) run(ctx context.Context, opts Options, log *zap.Logger) *Report {
	latest, haveLatest, err := s.store.LatestTimestamp(ctx)
	if err != nil {
		return errorReport(err, "read latest timestamp")
	}

	// Strictly-newer semantics: the stored high-water mark itself is not a
	// candidate. An empty store falls back to the lookback window.
	cutoff := latest
	if !haveLatest {
		cutoff = time.Now().UTC().Add(-opts.Window)
	}

	var entries []feed.Entry
	fetchErr := resilience.Do(ctx, retryConfig(), func(ctx context.Context) error {
		var err error
		entries, err = s.source.Fetch(ctx, opts.Category, cutoff)
		return err
	})
	if fetchErr != nil {
		log.Error("feed fetch failed", zap.Error(fetchErr))
		return errorReport(fetchErr, "fetch feed")
	}

	// Newest first, for reporting only; persistence order does not matter.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Updated.After(entries[j].Updated)
	})
	if opts.Limit > 0 && len(entries) > opts.Limit {
		entries = entries[:opts.Limit]
	}

	report := &Report{Fetched: len(entries)}
	var latestAfter time.Time

	for _, e := range entries {
		exists, err := s.store.PaperExists(ctx, e.ID)
		if err != nil {
			return errorReport(err, "existence check")
		}
		if exists {
			continue
		}

		p := &model.Paper{
			ArxivID:   e.ID,
			Title:     e.Title,
			Abstract:  e.Abstract,
			Authors:   e.Authors,
			ArxivTime: e.Updated,
		}
		if err := s.store.UpsertPaper(ctx, p); err != nil {
			// One bad record must not abort the run.
			log.Error("upsert failed", zap.String("arxiv_id", e.ID), zap.Error(err))
			report.UpsertErrors++
			continue
		}

		report.NewPapers++
		if e.Updated.After(latestAfter) {
			latestAfter = e.Updated
		}
	}

	if report.NewPapers > 0 {
		report.Status = StatusNewPapers
		report.LatestTimestamp = &latestAfter
		report.Message = fmt.Sprintf("added %d new papers (latest: %s)",
			report.NewPapers, latestAfter.Format(time.RFC3339))
	} else {
		report.Status = StatusUpToDate
		report.Message = "store is up to date"
		if haveLatest {
			report.LatestTimestamp = &latest
			report.Message = fmt.Sprintf("store is up to date (latest: %s)", latest.Format(time.RFC3339))
		}
	}

	log.Info("sync complete",
		zap.String("status", string(report.Status)),
		zap.Int("fetched", report.Fetched),
		zap.Int("new_papers", report.NewPapers),
		zap.Int("upsert_errors", report.UpsertErrors),
	)
	return report
}

func retryConfig() resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.OnRetry = resilience.RetryLogger("arxiv", "fetch_feed")
	return cfg
}

func errorReport(err error, op string) *Report {
	return &Report{
		Status:  StatusError,
		Message: fmt.Sprintf("%s: %s", op, err.Error()),
	}
}

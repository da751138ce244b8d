// Package store persists papers, their author lists, and the sync history.
package store

import (
	"context"
	"time"

	"github.com/paperdesk/paperdesk/internal/model"
)

// Store defines the persistence contract for the paper pipeline.
//
// All mutations are transactional: a paper row and its author rows change
// together or not at all. Evaluation writebacks return (false, nil) when the
// paper is absent rather than an error, since evaluation may lag ingestion.
type Store interface {
	// Papers
	UpsertPaper(ctx context.Context, p *model.Paper) error
	PaperExists(ctx context.Context, arxivID string) (bool, error)
	LatestTimestamp(ctx context.Context) (time.Time, bool, error)
	UnevaluatedPapers(ctx context.Context, limit int) ([]model.Paper, error)
	ListPapers(ctx context.Context) ([]model.Paper, error)

	// Evaluation writebacks
	UpdateAuthorEvaluation(ctx context.Context, arxivID string, score float64, metrics *model.LineupMetrics) (bool, error)
	UpdateUserEvaluation(ctx context.Context, arxivID string, score float64, explanation string) (bool, error)
	UpdateLLMEvaluation(ctx context.Context, arxivID string, score float64, explanation string) (bool, error)

	// Reporting
	Stats(ctx context.Context) (*model.StoreStats, error)

	// Sync history
	StartSyncRun(ctx context.Context, category string) (string, error)
	CompleteSyncRun(ctx context.Context, runID string, newPapers int) error
	FailSyncRun(ctx context.Context, runID string, errMsg string) error
	ListSyncRuns(ctx context.Context) ([]model.SyncRun, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

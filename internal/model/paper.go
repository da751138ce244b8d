// Package model defines the domain types shared across the paper pipeline.
package model

import (
	"time"
)

// MetricsSource tags where an author's metrics came from.
type MetricsSource string

const (
	// SourceLive means the metrics were returned by the author lookup API.
	SourceLive MetricsSource = "live"
	// SourceFallback means every lookup attempt failed and zeroed metrics
	// were substituted.
	SourceFallback MetricsSource = "fallback"
)

// Paper represents a single arXiv paper as stored in the database.
// Authors are kept in the order the feed listed them.
type Paper struct {
	ArxivID   string    `json:"arxiv_id"`
	Title     string    `json:"title"`
	Abstract  string    `json:"abstract"`
	Authors   []string  `json:"authors"`
	ArxivTime time.Time `json:"arxiv_time"`

	LLMScore        *float64 `json:"llm_score,omitempty"`
	LLMExplanation  string   `json:"llm_explanation,omitempty"`
	UserScore       *float64 `json:"user_score,omitempty"`
	UserExplanation string   `json:"user_explanation,omitempty"`

	LineupScore   *float64       `json:"lineup_score,omitempty"`
	LineupMetrics *LineupMetrics `json:"lineup_metrics,omitempty"`

	DBUpdated time.Time `json:"db_updated"`
}

// AuthorMetrics is a snapshot of one author's reputation signals. It is
// consumed immediately by the lineup evaluator and never persisted on its own.
type AuthorMetrics struct {
	Name        string        `json:"name"`
	HIndex      int           `json:"h_index"`
	Citations   int           `json:"citations"`
	Affiliation string        `json:"affiliation"`
	IsIndustry  bool          `json:"is_industry"`
	Source      MetricsSource `json:"source"`
}

// ScoreComponents breaks the composite lineup score into its weighted parts.
type ScoreComponents struct {
	Prestige    float64 `json:"prestige"`
	Balance     float64 `json:"balance"`
	Industry    float64 `json:"industry"`
	SizePenalty float64 `json:"size_penalty"`
}

// LineupMetrics is the structured blob persisted alongside a paper's lineup
// score. Serialized to JSON only at the storage boundary.
type LineupMetrics struct {
	AuthorScores map[string]int   `json:"author_scores,omitempty"`
	Components   *ScoreComponents `json:"components,omitempty"`
	Note         string           `json:"note,omitempty"` // e.g. "no_authors"
}

// StoreStats holds aggregate counts for operational reporting.
type StoreStats struct {
	TotalPapers     int        `json:"total_papers"`
	UserEvaluated   int        `json:"user_evaluated"`
	LLMEvaluated    int        `json:"llm_evaluated"`
	AuthorEvaluated int        `json:"author_evaluated"`
	OldestPaper     *time.Time `json:"oldest_paper,omitempty"`
	NewestPaper     *time.Time `json:"newest_paper,omitempty"`
}

// SyncRunStatus represents the state of one sync run.
type SyncRunStatus string

const (
	SyncRunRunning  SyncRunStatus = "running"
	SyncRunComplete SyncRunStatus = "complete"
	SyncRunFailed   SyncRunStatus = "failed"
)

// SyncRun records one fetch-and-store cycle in the sync history.
type SyncRun struct {
	ID          string        `json:"id"`
	Category    string        `json:"category"`
	Status      SyncRunStatus `json:"status"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	NewPapers   int           `json:"new_papers"`
	Error       string        `json:"error,omitempty"`
}

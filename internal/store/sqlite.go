package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/paperdesk/paperdesk/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS papers (
	local_id         INTEGER PRIMARY KEY AUTOINCREMENT,
	arxiv_id         TEXT UNIQUE NOT NULL,
	title            TEXT NOT NULL,
	abstract         TEXT,
	arxiv_time       DATETIME NOT NULL,
	llm_score        REAL,
	llm_explanation  TEXT,
	user_score       REAL,
	user_explanation TEXT,
	lineup_score     REAL,
	lineup_metrics   TEXT,
	db_updated       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS authors (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	paper_id INTEGER NOT NULL REFERENCES papers(local_id),
	position INTEGER NOT NULL,
	name     TEXT NOT NULL,
	UNIQUE (paper_id, name)
);

CREATE TABLE IF NOT EXISTS sync_runs (
	id           TEXT PRIMARY KEY,
	category     TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	started_at   DATETIME NOT NULL,
	completed_at DATETIME,
	new_papers   INTEGER NOT NULL DEFAULT 0,
	error        TEXT
);

CREATE INDEX IF NOT EXISTS idx_papers_arxiv_time ON papers(arxiv_time);
CREATE INDEX IF NOT EXISTS idx_papers_user_score ON papers(user_score);
CREATE INDEX IF NOT EXISTS idx_authors_paper_id ON authors(paper_id);
CREATE INDEX IF NOT EXISTS idx_sync_runs_started_at ON sync_runs(started_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// UpsertPaper inserts or updates a paper keyed by arxiv_id. The paper's
// author rows are replaced in the same transaction so the stored author set
// always matches the ingested one exactly.
func (s *SQLiteStore) UpsertPaper(ctx context.Context, p *model.Paper) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin upsert")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO papers (arxiv_id, title, abstract, arxiv_time, db_updated)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(arxiv_id) DO UPDATE SET
			title = excluded.title,
			abstract = excluded.abstract,
			arxiv_time = excluded.arxiv_time,
			db_updated = excluded.db_updated`,
		p.ArxivID, p.Title, p.Abstract, p.ArxivTime.UTC(), time.Now().UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: upsert paper %s", p.ArxivID)
	}

	var localID int64
	err = tx.QueryRowContext(ctx,
		`SELECT local_id FROM papers WHERE arxiv_id = ?`, p.ArxivID,
	).Scan(&localID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: resolve local id for %s", p.ArxivID)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM authors WHERE paper_id = ?`, localID,
	); err != nil {
		return eris.Wrapf(err, "sqlite: clear authors for %s", p.ArxivID)
	}
	for i, name := range p.Authors {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO authors (paper_id, position, name) VALUES (?, ?, ?)`,
			localID, i, name,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert author %q for %s", name, p.ArxivID)
		}
	}

	return eris.Wrapf(tx.Commit(), "sqlite: commit upsert %s", p.ArxivID)
}

func (s *SQLiteStore) PaperExists(ctx context.Context, arxivID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM papers WHERE arxiv_id = ?`, arxivID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: exists %s", arxivID)
	}
	return true, nil
}

// LatestTimestamp returns the newest stored arxiv_time. The second return
// value is false when the store is empty.
func (s *SQLiteStore) LatestTimestamp(ctx context.Context) (time.Time, bool, error) {
	var t time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT arxiv_time FROM papers ORDER BY arxiv_time DESC LIMIT 1`,
	).Scan(&t)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, eris.Wrap(err, "sqlite: latest timestamp")
	}
	return t, true, nil
}

const sqlitePaperColumns = `local_id, arxiv_id, title, abstract, arxiv_time,
	llm_score, llm_explanation, user_score, user_explanation,
	lineup_score, lineup_metrics, db_updated`

// UnevaluatedPapers returns up to limit papers without a user score,
// oldest first.
func (s *SQLiteStore) UnevaluatedPapers(ctx context.Context, limit int) ([]model.Paper, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqlitePaperColumns+` FROM papers
		 WHERE user_score IS NULL
		 ORDER BY arxiv_time ASC
		 LIMIT ?`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: unevaluated papers")
	}
	defer rows.Close()
	return s.collectPapers(ctx, rows)
}

// ListPapers returns every stored paper, newest first.
func (s *SQLiteStore) ListPapers(ctx context.Context) ([]model.Paper, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqlitePaperColumns+` FROM papers ORDER BY arxiv_time DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list papers")
	}
	defer rows.Close()
	return s.collectPapers(ctx, rows)
}

func (s *SQLiteStore) collectPapers(ctx context.Context, rows *sql.Rows) ([]model.Paper, error) {
	type scanned struct {
		paper   model.Paper
		localID int64
	}
	var items []scanned
	for rows.Next() {
		p, localID, err := scanPaper(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, scanned{paper: *p, localID: localID})
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate papers")
	}

	papers := make([]model.Paper, 0, len(items))
	for _, it := range items {
		authors, err := s.loadAuthors(ctx, it.localID)
		if err != nil {
			return nil, err
		}
		it.paper.Authors = authors
		papers = append(papers, it.paper)
	}
	return papers, nil
}

func (s *SQLiteStore) loadAuthors(ctx context.Context, localID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM authors WHERE paper_id = ? ORDER BY position`, localID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load authors")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan author")
		}
		names = append(names, name)
	}
	return names, eris.Wrap(rows.Err(), "sqlite: iterate authors")
}

// UpdateAuthorEvaluation stores the lineup score and metrics blob. Returns
// false when no paper has the given id.
func (s *SQLiteStore) UpdateAuthorEvaluation(ctx context.Context, arxivID string, score float64, metrics *model.LineupMetrics) (bool, error) {
	var metricsJSON []byte
	if metrics != nil {
		var err error
		metricsJSON, err = json.Marshal(metrics)
		if err != nil {
			return false, eris.Wrap(err, "sqlite: marshal lineup metrics")
		}
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE papers
		 SET lineup_score = ?, lineup_metrics = ?, db_updated = ?
		 WHERE arxiv_id = ?`,
		score, nullableString(metricsJSON), time.Now().UTC(), arxivID,
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: update author evaluation %s", arxivID)
	}
	return rowsAffected(res)
}

func (s *SQLiteStore) UpdateUserEvaluation(ctx context.Context, arxivID string, score float64, explanation string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE papers
		 SET user_score = ?, user_explanation = ?, db_updated = ?
		 WHERE arxiv_id = ?`,
		score, explanation, time.Now().UTC(), arxivID,
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: update user evaluation %s", arxivID)
	}
	return rowsAffected(res)
}

func (s *SQLiteStore) UpdateLLMEvaluation(ctx context.Context, arxivID string, score float64, explanation string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE papers
		 SET llm_score = ?, llm_explanation = ?, db_updated = ?
		 WHERE arxiv_id = ?`,
		score, explanation, time.Now().UTC(), arxivID,
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: update llm evaluation %s", arxivID)
	}
	return rowsAffected(res)
}

func (s *SQLiteStore) Stats(ctx context.Context) (*model.StoreStats, error) {
	stats := &model.StoreStats{}
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
			COUNT(user_score),
			COUNT(llm_score),
			COUNT(lineup_score)
		 FROM papers`,
	).Scan(&stats.TotalPapers, &stats.UserEvaluated, &stats.LLMEvaluated, &stats.AuthorEvaluated)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: stats counts")
	}

	if stats.TotalPapers > 0 {
		var oldest, newest time.Time
		err = s.db.QueryRowContext(ctx,
			`SELECT arxiv_time FROM papers ORDER BY arxiv_time ASC LIMIT 1`,
		).Scan(&oldest)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: stats oldest")
		}
		err = s.db.QueryRowContext(ctx,
			`SELECT arxiv_time FROM papers ORDER BY arxiv_time DESC LIMIT 1`,
		).Scan(&newest)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: stats newest")
		}
		stats.OldestPaper = &oldest
		stats.NewestPaper = &newest
	}
	return stats, nil
}

func (s *SQLiteStore) StartSyncRun(ctx context.Context, category string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_runs (id, category, status, started_at) VALUES (?, ?, ?, ?)`,
		id, category, string(model.SyncRunRunning), time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: start sync run")
	}
	return id, nil
}

func (s *SQLiteStore) CompleteSyncRun(ctx context.Context, runID string, newPapers int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sync_runs SET status = ?, completed_at = ?, new_papers = ? WHERE id = ?`,
		string(model.SyncRunComplete), time.Now().UTC(), newPapers, runID,
	)
	return eris.Wrapf(err, "sqlite: complete sync run %s", runID)
}

func (s *SQLiteStore) FailSyncRun(ctx context.Context, runID string, errMsg string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sync_runs SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		string(model.SyncRunFailed), time.Now().UTC(), errMsg, runID,
	)
	return eris.Wrapf(err, "sqlite: fail sync run %s", runID)
}

func (s *SQLiteStore) ListSyncRuns(ctx context.Context) ([]model.SyncRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, category, status, started_at, completed_at, new_papers, error
		 FROM sync_runs ORDER BY started_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list sync runs")
	}
	defer rows.Close()

	var runs []model.SyncRun
	for rows.Next() {
		var r model.SyncRun
		var completedAt sql.NullTime
		var errStr sql.NullString
		if err := rows.Scan(&r.ID, &r.Category, &r.Status, &r.StartedAt, &completedAt, &r.NewPapers, &errStr); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan sync run")
		}
		if completedAt.Valid {
			t := completedAt.Time
			r.CompletedAt = &t
		}
		r.Error = errStr.String
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate sync runs")
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanPaper(row scannable) (*model.Paper, int64, error) {
	var (
		p           model.Paper
		localID     int64
		abstract    sql.NullString
		llmScore    sql.NullFloat64
		llmExpl     sql.NullString
		userScore   sql.NullFloat64
		userExpl    sql.NullString
		lineupScore sql.NullFloat64
		metricsJSON sql.NullString
	)
	err := row.Scan(&localID, &p.ArxivID, &p.Title, &abstract, &p.ArxivTime,
		&llmScore, &llmExpl, &userScore, &userExpl,
		&lineupScore, &metricsJSON, &p.DBUpdated)
	if err != nil {
		return nil, 0, eris.Wrap(err, "sqlite: scan paper")
	}

	p.Abstract = abstract.String
	p.LLMExplanation = llmExpl.String
	p.UserExplanation = userExpl.String
	if llmScore.Valid {
		v := llmScore.Float64
		p.LLMScore = &v
	}
	if userScore.Valid {
		v := userScore.Float64
		p.UserScore = &v
	}
	if lineupScore.Valid {
		v := lineupScore.Float64
		p.LineupScore = &v
	}
	if metricsJSON.Valid && metricsJSON.String != "" {
		p.LineupMetrics = &model.LineupMetrics{}
		if err := json.Unmarshal([]byte(metricsJSON.String), p.LineupMetrics); err != nil {
			return nil, 0, eris.Wrap(err, "sqlite: unmarshal lineup metrics")
		}
	}
	return &p, localID, nil
}

func rowsAffected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "rows affected")
	}
	return n > 0, nil
}

func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

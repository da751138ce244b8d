package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/paperdesk/paperdesk/internal/db"
	"github.com/paperdesk/paperdesk/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(5)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS papers (
	local_id         BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	arxiv_id         TEXT UNIQUE NOT NULL,
	title            TEXT NOT NULL,
	abstract         TEXT,
	arxiv_time       TIMESTAMPTZ NOT NULL,
	llm_score        DOUBLE PRECISION,
	llm_explanation  TEXT,
	user_score       DOUBLE PRECISION,
	user_explanation TEXT,
	lineup_score     DOUBLE PRECISION,
	lineup_metrics   JSONB,
	db_updated       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS authors (
	id       BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	paper_id BIGINT NOT NULL REFERENCES papers(local_id),
	position INTEGER NOT NULL,
	name     TEXT NOT NULL,
	UNIQUE (paper_id, name)
);

CREATE TABLE IF NOT EXISTS sync_runs (
	id           TEXT PRIMARY KEY,
	category     TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	started_at   TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ,
	new_papers   INTEGER NOT NULL DEFAULT 0,
	error        TEXT
);

CREATE INDEX IF NOT EXISTS idx_papers_arxiv_time ON papers(arxiv_time);
CREATE INDEX IF NOT EXISTS idx_papers_user_score ON papers(user_score);
CREATE INDEX IF NOT EXISTS idx_authors_paper_id ON authors(paper_id);
CREATE INDEX IF NOT EXISTS idx_sync_runs_started_at ON sync_runs(started_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) UpsertPaper(ctx context.Context, p *model.Paper) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin upsert")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var localID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO papers (arxiv_id, title, abstract, arxiv_time, db_updated)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (arxiv_id) DO UPDATE SET
			title = excluded.title,
			abstract = excluded.abstract,
			arxiv_time = excluded.arxiv_time,
			db_updated = now()
		 RETURNING local_id`,
		p.ArxivID, p.Title, p.Abstract, p.ArxivTime.UTC(),
	).Scan(&localID)
	if err != nil {
		return eris.Wrapf(err, "postgres: upsert paper %s", p.ArxivID)
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM authors WHERE paper_id = $1`, localID,
	); err != nil {
		return eris.Wrapf(err, "postgres: clear authors for %s", p.ArxivID)
	}
	for i, name := range p.Authors {
		if _, err := tx.Exec(ctx,
			`INSERT INTO authors (paper_id, position, name) VALUES ($1, $2, $3)`,
			localID, i, name,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert author %q for %s", name, p.ArxivID)
		}
	}

	return eris.Wrapf(tx.Commit(ctx), "postgres: commit upsert %s", p.ArxivID)
}

func (s *PostgresStore) PaperExists(ctx context.Context, arxivID string) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx,
		`SELECT 1 FROM papers WHERE arxiv_id = $1`, arxivID,
	).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "postgres: exists %s", arxivID)
	}
	return true, nil
}

func (s *PostgresStore) LatestTimestamp(ctx context.Context) (time.Time, bool, error) {
	var t time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT arxiv_time FROM papers ORDER BY arxiv_time DESC LIMIT 1`,
	).Scan(&t)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, eris.Wrap(err, "postgres: latest timestamp")
	}
	return t, true, nil
}

const pgPaperColumns = `local_id, arxiv_id, title, abstract, arxiv_time,
	llm_score, llm_explanation, user_score, user_explanation,
	lineup_score, lineup_metrics, db_updated`

func (s *PostgresStore) UnevaluatedPapers(ctx context.Context, limit int) ([]model.Paper, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+pgPaperColumns+` FROM papers
		 WHERE user_score IS NULL
		 ORDER BY arxiv_time ASC
		 LIMIT $1`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: unevaluated papers")
	}
	defer rows.Close()
	return s.collectPapers(ctx, rows)
}

func (s *PostgresStore) ListPapers(ctx context.Context) ([]model.Paper, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+pgPaperColumns+` FROM papers ORDER BY arxiv_time DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list papers")
	}
	defer rows.Close()
	return s.collectPapers(ctx, rows)
}

func (s *PostgresStore) collectPapers(ctx context.Context, rows pgx.Rows) ([]model.Paper, error) {
	type scanned struct {
		paper   model.Paper
		localID int64
	}
	var items []scanned
	for rows.Next() {
		p, localID, err := scanPgPaper(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, scanned{paper: *p, localID: localID})
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate papers")
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

func (s *PostgresStore) loadAuthors(ctx context.Context, localID int64) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT name FROM authors WHERE paper_id = $1 ORDER BY position`, localID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load authors")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "postgres: scan author")
		}
		names = append(names, name)
	}
	return names, eris.Wrap(rows.Err(), "postgres: iterate authors")
}

func (s *PostgresStore) UpdateAuthorEvaluation(ctx context.Context, arxivID string, score float64, metrics *model.LineupMetrics) (bool, error) {
	var metricsJSON []byte
	if metrics != nil {
		var err error
		metricsJSON, err = json.Marshal(metrics)
		if err != nil {
			return false, eris.Wrap(err, "postgres: marshal lineup metrics")
		}
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE papers
		 SET lineup_score = $1, lineup_metrics = $2, db_updated = now()
		 WHERE arxiv_id = $3`,
		score, metricsJSON, arxivID,
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: update author evaluation %s", arxivID)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) UpdateUserEvaluation(ctx context.Context, arxivID string, score float64, explanation string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE papers
		 SET user_score = $1, user_explanation = $2, db_updated = now()
		 WHERE arxiv_id = $3`,
		score, explanation, arxivID,
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: update user evaluation %s", arxivID)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) UpdateLLMEvaluation(ctx context.Context, arxivID string, score float64, explanation string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE papers
		 SET llm_score = $1, llm_explanation = $2, db_updated = now()
		 WHERE arxiv_id = $3`,
		score, explanation, arxivID,
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: update llm evaluation %s", arxivID)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) Stats(ctx context.Context) (*model.StoreStats, error) {
	stats := &model.StoreStats{}
	var oldest, newest *time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*),
			COUNT(user_score),
			COUNT(llm_score),
			COUNT(lineup_score),
			MIN(arxiv_time),
			MAX(arxiv_time)
		 FROM papers`,
	).Scan(&stats.TotalPapers, &stats.UserEvaluated, &stats.LLMEvaluated,
		&stats.AuthorEvaluated, &oldest, &newest)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: stats")
	}
	stats.OldestPaper = oldest
	stats.NewestPaper = newest
	return stats, nil
}

func (s *PostgresStore) StartSyncRun(ctx context.Context, category string) (string, error) {
	id := uuid.New().String()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sync_runs (id, category, status, started_at) VALUES ($1, $2, $3, $4)`,
		id, category, string(model.SyncRunRunning), time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrap(err, "postgres: start sync run")
	}
	return id, nil
}

func (s *PostgresStore) CompleteSyncRun(ctx context.Context, runID string, newPapers int) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE sync_runs SET status = $1, completed_at = now(), new_papers = $2 WHERE id = $3`,
		string(model.SyncRunComplete), newPapers, runID,
	)
	return eris.Wrapf(err, "postgres: complete sync run %s", runID)
}

func (s *PostgresStore) FailSyncRun(ctx context.Context, runID string, errMsg string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE sync_runs SET status = $1, completed_at = now(), error = $2 WHERE id = $3`,
		string(model.SyncRunFailed), errMsg, runID,
	)
	return eris.Wrapf(err, "postgres: fail sync run %s", runID)
}

func (s *PostgresStore) ListSyncRuns(ctx context.Context) ([]model.SyncRun, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, category, status, started_at, completed_at, new_papers, error
		 FROM sync_runs ORDER BY started_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list sync runs")
	}
	defer rows.Close()

	var runs []model.SyncRun
	for rows.Next() {
		var r model.SyncRun
		var completedAt *time.Time
		var errStr *string
		if err := rows.Scan(&r.ID, &r.Category, &r.Status, &r.StartedAt, &completedAt, &r.NewPapers, &errStr); err != nil {
			return nil, eris.Wrap(err, "postgres: scan sync run")
		}
		r.CompletedAt = completedAt
		if errStr != nil {
			r.Error = *errStr
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: iterate sync runs")
}

func scanPgPaper(row pgx.Row) (*model.Paper, int64, error) {
	var (
		p           model.Paper
		localID     int64
		abstract    sql.NullString
		llmExpl     sql.NullString
		userExpl    sql.NullString
		metricsJSON []byte
	)
	err := row.Scan(&localID, &p.ArxivID, &p.Title, &abstract, &p.ArxivTime,
		&p.LLMScore, &llmExpl, &p.UserScore, &userExpl,
		&p.LineupScore, &metricsJSON, &p.DBUpdated)
	if err != nil {
		return nil, 0, eris.Wrap(err, "postgres: scan paper")
	}

	p.Abstract = abstract.String
	p.LLMExplanation = llmExpl.String
	p.UserExplanation = userExpl.String
	if len(metricsJSON) > 0 {
		p.LineupMetrics = &model.LineupMetrics{}
		if err := json.Unmarshal(metricsJSON, p.LineupMetrics); err != nil {
			return nil, 0, eris.Wrap(err, "postgres: unmarshal lineup metrics")
		}
	}
	return &p, localID, nil
}

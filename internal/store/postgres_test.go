package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_PaperExists_False(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT 1 FROM papers WHERE arxiv_id = \$1`).
		WithArgs("2506.00001").
		WillReturnError(pgx.ErrNoRows)

	exists, err := s.PaperExists(context.Background(), "2506.00001")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_PaperExists_True(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT 1 FROM papers WHERE arxiv_id = \$1`).
		WithArgs("2506.00001").
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := s.PaperExists(context.Background(), "2506.00001")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LatestTimestamp_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT arxiv_time FROM papers ORDER BY arxiv_time DESC LIMIT 1`).
		WillReturnError(pgx.ErrNoRows)

	_, ok, err := s.LatestTimestamp(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LatestTimestamp(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	want := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT arxiv_time FROM papers ORDER BY arxiv_time DESC LIMIT 1`).
		WillReturnRows(pgxmock.NewRows([]string{"arxiv_time"}).AddRow(want))

	got, ok, err := s.LatestTimestamp(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Equal(want))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertPaper_Transactional(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO papers`).
		WithArgs("2506.00001", "A Title", "An abstract", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"local_id"}).AddRow(int64(7)))
	mock.ExpectExec(`DELETE FROM authors WHERE paper_id = \$1`).
		WithArgs(int64(7)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`INSERT INTO authors`).
		WithArgs(int64(7), 0, "Alice").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO authors`).
		WithArgs(int64(7), 1, "Bob").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	p := testPaper("2506.00001", time.Now().UTC(), "Alice", "Bob")
	p.Title = "A Title"
	p.Abstract = "An abstract"
	require.NoError(t, s.UpsertPaper(context.Background(), p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertPaper_RollsBackOnAuthorError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO papers`).
		WithArgs("2506.00001", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"local_id"}).AddRow(int64(7)))
	mock.ExpectExec(`DELETE FROM authors WHERE paper_id = \$1`).
		WithArgs(int64(7)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`INSERT INTO authors`).
		WithArgs(int64(7), 0, "Alice").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := s.UpsertPaper(context.Background(), testPaper("2506.00001", time.Now().UTC(), "Alice"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert author")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateUserEvaluation_Missing(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE papers`).
		WithArgs(7.0, "note", "nope").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := s.UpdateUserEvaluation(context.Background(), "nope", 7, "note")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateLLMEvaluation(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE papers`).
		WithArgs(8.0, "strong", "2506.00001").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ok, err := s.UpdateLLMEvaluation(context.Background(), "2506.00001", 8, "strong")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Stats(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	oldest := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	newest := time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WillReturnRows(pgxmock.NewRows(
			[]string{"count", "user", "llm", "lineup", "min", "max"},
		).AddRow(3, 1, 2, 1, &oldest, &newest))

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalPapers)
	assert.Equal(t, 1, stats.UserEvaluated)
	assert.Equal(t, 2, stats.LLMEvaluated)
	assert.Equal(t, 1, stats.AuthorEvaluated)
	require.NotNil(t, stats.OldestPaper)
	assert.True(t, stats.OldestPaper.Equal(oldest))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SyncRun_Lifecycle(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	ctx := context.Background()

	mock.ExpectExec(`INSERT INTO sync_runs`).
		WithArgs(pgxmock.AnyArg(), "cs.AI", "running", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := s.StartSyncRun(ctx, "cs.AI")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	mock.ExpectExec(`UPDATE sync_runs SET status = \$1, completed_at = now\(\), new_papers = \$2`).
		WithArgs("complete", 4, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.CompleteSyncRun(ctx, id, 4))
	assert.NoError(t, mock.ExpectationsWereMet())
}

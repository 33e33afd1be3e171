package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/requirement-analyzer/internal/domain/failures"
)

func TestFailureRepository_SaveWrapsInvalidDetails(t *testing.T) {
	conn, mock := newMock(t)
	repo := NewFailureRepository(conn)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO analysis_failures")).
		WithArgs("run-1", "qwen/qwen3", "parse", "malformed json", `{"raw":"not json"}`, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))

	f := &failures.Failure{
		RunID:       "run-1",
		Model:       "qwen/qwen3",
		Phase:       failures.PhaseParse,
		Message:     "malformed json",
		DetailsJSON: "not json",
	}
	require.NoError(t, repo.Save(context.Background(), f))
	assert.Equal(t, int64(3), f.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFailureRepository_SaveDefaults(t *testing.T) {
	conn, mock := newMock(t)
	repo := NewFailureRepository(conn)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO analysis_failures")).
		WithArgs("-", "-", "-", "-", "{}", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	require.NoError(t, repo.Save(context.Background(), &failures.Failure{}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFailureRepository_ListFiltersByRun(t *testing.T) {
	conn, mock := newMock(t)
	repo := NewFailureRepository(conn)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE run_id = $1")).
		WithArgs("run-1", 5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "run_id", "model", "phase", "message", "details_json", "created_at"}).
			AddRow(4, "run-1", "m", "persist", "boom", "{}", at))

	got, err := repo.List(context.Background(), "run-1", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, failures.PhasePersist, got[0].Phase)
	assert.Equal(t, at, got[0].CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFailureRepository_ListAllUsesDefaultLimit(t *testing.T) {
	conn, mock := newMock(t)
	repo := NewFailureRepository(conn)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC, id DESC\nLIMIT $1")).
		WithArgs(20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "run_id", "model", "phase", "message", "details_json", "created_at"}))

	got, err := repo.List(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

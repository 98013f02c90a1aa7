package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-invitations/internal/model"
)

func sessionRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "code", "name", "start_date", "start_time", "movie_id", "cinema_id",
		"seats_layout", "seats_available", "layout_version", "active", "created_at", "updated_at"})
}

func TestSessionGetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewSessionRepo(db)
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM sessions WHERE id = ?")).WithArgs(1).
		WillReturnRows(sessionRows().AddRow(1, 100, "Late show", now, "22:30", 4, 3, []byte("[[0,1],[0,0]]"), 3, 8, true, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM sessions WHERE id = ?")).WithArgs(2).
		WillReturnRows(sessionRows())

	s, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, model.Layout{{0, 1}, {0, 0}}, s.SeatsLayout)
	assert.Equal(t, 3, s.SeatsAvailable)
	assert.Equal(t, uint64(8), s.LayoutVersion)

	_, err = repo.GetByID(context.Background(), 2)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionCreateDerivesAvailability(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewSessionRepo(db)
	day := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sessions")).
		WithArgs(100, "Late show", "2026-02-01", "22:30", 4, 3, "[[0,0],[0,0]]", 4, true).
		WillReturnResult(sqlmock.NewResult(12, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	s := &model.Session{Code: 100, Name: "Late show", StartDate: day, StartTime: "22:30", MovieID: 4, CinemaID: 3,
		SeatsLayout: model.Layout{{0, 0}, {0, 0}}, Active: true}
	require.NoError(t, repo.CreateTx(context.Background(), tx, s))
	require.NoError(t, tx.Commit())
	assert.Equal(t, uint64(12), s.ID)
	assert.Equal(t, 4, s.SeatsAvailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewSessionRepo(db)
	del := regexp.QuoteMeta("DELETE FROM sessions WHERE id = ?")
	exists := regexp.QuoteMeta("SELECT 1 FROM sessions WHERE id = ?")

	// deleted
	mock.ExpectExec(del).WithArgs(1, 1).WillReturnResult(sqlmock.NewResult(0, 1))
	// blocked by a valid reservation
	mock.ExpectExec(del).WithArgs(2, 2).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(exists).WithArgs(2).WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	// missing
	mock.ExpectExec(del).WithArgs(3, 3).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(exists).WithArgs(3).WillReturnRows(sqlmock.NewRows([]string{"1"}))

	ctx := context.Background()
	assert.NoError(t, repo.Delete(ctx, 1))
	assert.ErrorIs(t, repo.Delete(ctx, 2), ErrConflict)
	assert.ErrorIs(t, repo.Delete(ctx, 3), ErrSessionNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

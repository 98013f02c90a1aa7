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

func invitationRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "reservation_id", "session_id", "user_id", "cinema_id", "movie_id", "email",
		"session_date", "session_time", "status", "seat_row", "seat_col", "checkin", "checkin_at"})
}

func TestInvitationCreateBulkAssignsIDs(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewInvitationRepo(db)
	ctx := context.Background()
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	invs := []model.Invitation{
		{ReservationID: 7, SessionID: 1, UserID: 2, CinemaID: 3, MovieID: 4, Email: "a@x.io", SessionDate: day, SessionTime: "20:00", Status: model.StatusValid, Row: 0, Column: 0},
		{ReservationID: 7, SessionID: 1, UserID: 2, CinemaID: 3, MovieID: 4, Email: "b@x.io", SessionDate: day, SessionTime: "20:00", Status: model.StatusValid, Row: 0, Column: 1},
	}
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO invitations")).
		WithArgs(7, 1, 2, 3, 4, "a@x.io", "2026-03-01", "20:00", "valid", 0, 0,
			7, 1, 2, 3, 4, "b@x.io", "2026-03-01", "20:00", "valid", 0, 1).
		WillReturnResult(sqlmock.NewResult(40, 2))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, repo.CreateBulkTx(ctx, tx, invs))
	require.NoError(t, tx.Commit())
	assert.Equal(t, uint64(40), invs[0].ID)
	assert.Equal(t, uint64(41), invs[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvitationCheckinIfValid(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewInvitationRepo(db)
	at := time.Date(2026, 3, 1, 19, 55, 0, 0, time.UTC)
	q := regexp.QuoteMeta("UPDATE invitations SET checkin = 1, checkin_at = ? WHERE id = ? AND status = 'valid' AND checkin = 0")

	mock.ExpectExec(q).WithArgs(at, 5).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs(at, 5).WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.CheckinIfValid(context.Background(), 5, at)
	assert.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.CheckinIfValid(context.Background(), 5, at)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvitationGetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewInvitationRepo(db)
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	at := day.Add(20 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("FROM invitations WHERE id = ?")).WithArgs(1).
		WillReturnRows(invitationRows().AddRow(1, 7, 1, 2, 3, 4, "a@x.io", day, "20:00", "valid", 2, 3, true, at))
	mock.ExpectQuery(regexp.QuoteMeta("FROM invitations WHERE id = ?")).WithArgs(2).
		WillReturnRows(invitationRows())

	inv, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, model.SeatCoord{2, 3}, inv.Seat())
	assert.True(t, inv.Checkin)
	require.NotNil(t, inv.CheckinAt)
	assert.Equal(t, at, *inv.CheckinAt)

	_, err = repo.GetByID(context.Background(), 2)
	assert.ErrorIs(t, err, ErrInvitationNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvitationStats(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewInvitationRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY status, checkin")).WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"status", "checkin", "count"}).
			AddRow("cancelled", false, 2).
			AddRow("valid", false, 3).
			AddRow("valid", true, 1))

	stats, err := repo.Stats(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, []model.InvitationStat{
		{Status: "cancelled", Checkin: false, Count: 2},
		{Status: "valid", Checkin: false, Count: 3},
		{Status: "valid", Checkin: true, Count: 1},
	}, stats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-co-op/gocron/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-invitations/internal/model"
)

func TestDiffGrid(t *testing.T) {
	grid := model.Layout{{1, 1, 0}, {0, 1, 1}}
	template := model.Layout{{0, 0, 0}, {0, 0, 1}} // [1,2] is blocked in the cinema itself
	valid := []model.Reservation{
		{ReservedSeatsLayout: model.SeatList{{0, 0}}},
		{ReservedSeatsLayout: model.SeatList{{0, 2}}},
	}
	orphans, missing, doubled, ok := diffGrid(grid, template, valid)
	require.True(t, ok)
	assert.Equal(t, []model.SeatCoord{{0, 1}, {1, 1}}, orphans)
	assert.Equal(t, []model.SeatCoord{{0, 2}}, missing)
	assert.Empty(t, doubled)

	_, _, _, ok = diffGrid(grid, model.Layout{{0}}, valid)
	assert.False(t, ok)
}

func TestDiffGridFindsDoubleBooking(t *testing.T) {
	grid := model.Layout{{1, 1}, {0, 1}}
	template := model.Layout{{0, 0}, {0, 1}}
	valid := []model.Reservation{
		{ReservedSeatsLayout: model.SeatList{{0, 0}}},
		{ReservedSeatsLayout: model.SeatList{{0, 0}, {0, 1}}},
		{ReservedSeatsLayout: model.SeatList{{1, 1}}}, // blocked by the cinema
	}
	orphans, missing, doubled, ok := diffGrid(grid, template, valid)
	require.True(t, ok)
	assert.Equal(t, []model.SeatCoord{{0, 0}, {1, 1}}, doubled)
	assert.Empty(t, orphans)
	assert.Empty(t, missing)
}

func TestReconcilerReportsDoubleBooking(t *testing.T) {
	db, mock := newDB(t)
	log, buf := quietLogger()
	r := NewReconciler(db, 0, log)
	r.now = func() time.Time { return testNow }

	mock.ExpectQuery(regexp.QuoteMeta("FROM sessions WHERE updated_at < ?")).
		WillReturnRows(sessionRow(1, "[[1,0],[0,0]]", 3, 4))
	mock.ExpectQuery(regexp.QuoteMeta("FROM cinemas WHERE id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "name", "seats_layout", "seats_available", "active", "created_at", "updated_at"}).
			AddRow(3, 1, "Odeon", []byte("[[0,0],[0,0]]"), 4, true, testNow, testNow))
	mock.ExpectQuery(regexp.QuoteMeta("FROM reservations WHERE session_id = ?")).
		WillReturnRows(reservationRow(7, "valid", 2, 1, "[[0,0]]", `["a@x.io"]`, 1).
			AddRow(8, "valid", 3, 1, 1, []byte("[[0,0]]"), []byte(`["b@x.io"]`), testNow, testNow))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE r.status = 'cancelled'")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	rep, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.DoubleBooked)
	assert.Zero(t, rep.SeatsReleased)
	assert.Zero(t, rep.MissingSeats)
	assert.Contains(t, buf.String(), "seats owned by more than one reservation")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcilerReleasesOrphansWithVersionGuard(t *testing.T) {
	db, mock := newDB(t)
	log, buf := quietLogger()
	r := NewReconciler(db, time.Minute, log)
	r.now = func() time.Time { return testNow }

	mock.ExpectQuery(regexp.QuoteMeta("FROM sessions WHERE updated_at < ?")).
		WithArgs(testNow.Add(-time.Minute)).
		WillReturnRows(sessionRow(1, "[[1,1],[0,0]]", 2, 9))
	mock.ExpectQuery(regexp.QuoteMeta("FROM cinemas WHERE id = ?")).WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "name", "seats_layout", "seats_available", "active", "created_at", "updated_at"}).
			AddRow(3, 1, "Odeon", []byte("[[0,0],[0,0]]"), 4, true, testNow, testNow))
	mock.ExpectQuery(regexp.QuoteMeta("FROM reservations WHERE session_id = ? AND status = 'valid'")).WithArgs(1).
		WillReturnRows(reservationRow(7, "valid", 2, 1, "[[0,0]]", `["a@x.io"]`, 1))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("AND layout_version = ?")).
		WithArgs("$[0][1]", 1, 9, "$[0][1]").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE r.status = 'cancelled'")).
		WillReturnRows(reservationRow(8, "cancelled", 2, 1, "[[1,1]]", `["b@x.io"]`, 1))
	mock.ExpectExec(qCascade).WithArgs(8).WillReturnResult(sqlmock.NewResult(0, 1))

	rep, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReconcileReport{SessionsChecked: 1, SeatsReleased: 1, CascadesRepaired: 1}, rep)
	assert.Contains(t, buf.String(), "orphaned seats released")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcilerReportsDriftWithoutTouchingGrid(t *testing.T) {
	db, mock := newDB(t)
	log, buf := quietLogger()
	r := NewReconciler(db, 0, log)
	r.now = func() time.Time { return testNow }

	// grid says 3 free cells, counter says 2
	mock.ExpectQuery(regexp.QuoteMeta("FROM sessions WHERE updated_at < ?")).
		WillReturnRows(sessionRow(1, "[[1,0],[0,0]]", 2, 4))
	mock.ExpectQuery(regexp.QuoteMeta("FROM cinemas WHERE id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "name", "seats_layout", "seats_available", "active", "created_at", "updated_at"}).
			AddRow(3, 1, "Odeon", []byte("[[0,0],[0,0]]"), 4, true, testNow, testNow))
	mock.ExpectQuery(regexp.QuoteMeta("FROM reservations WHERE session_id = ?")).
		WillReturnRows(reservationRow(7, "valid", 2, 1, "[[0,0],[1,1]]", `["a@x.io","b@x.io"]`, 2))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE r.status = 'cancelled'")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	rep, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.CounterDrift)
	assert.Equal(t, 1, rep.MissingSeats)
	assert.Zero(t, rep.SeatsReleased)
	assert.Contains(t, buf.String(), "seats_available drift")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcilerSchedule(t *testing.T) {
	db, _ := newDB(t)
	s, err := gocron.NewScheduler()
	require.NoError(t, err)
	defer func() { _ = s.Shutdown() }()

	job, err := NewReconciler(db, time.Minute, nil).Schedule(s, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "seat-reconciler", job.Name())
	assert.Len(t, s.Jobs(), 1)
}

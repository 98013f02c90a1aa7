package service

import (
	"bytes"
	"context"
	"database/sql"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-invitations/internal/queue"
)

var (
	testNow = time.Date(2026, 2, 20, 18, 0, 0, 0, time.UTC)
	testDay = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
)

type recordingNotifier struct {
	events []queue.InvitationEvent
	err    error
}

func (n *recordingNotifier) Publish(_ context.Context, events ...queue.InvitationEvent) error {
	n.events = append(n.events, events...)
	return n.err
}

func newDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// quietLogger collects output so tests can assert on logged faults.
func quietLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, nil)), &buf
}

func sessionRow(id uint64, layout string, available int, version uint64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "code", "name", "start_date", "start_time", "movie_id", "cinema_id",
		"seats_layout", "seats_available", "layout_version", "active", "created_at", "updated_at"}).
		AddRow(id, 100, "Evening", testDay, "20:00", 4, 3, []byte(layout), available, version, true, testNow, testNow)
}

func sessionDetailRow(id uint64, layout string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "code", "name", "start_date", "start_time", "movie_id", "cinema_id",
		"seats_layout", "seats_available", "layout_version", "active", "created_at", "updated_at", "title", "name"}).
		AddRow(id, 100, "Evening", testDay, "20:00", 4, 3, []byte(layout), 2, 1, true, testNow, testNow, "Metropolis", "Odeon")
}

func reservationRow(id uint64, status string, userID, sessionID uint64, seats, emails string, n int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "status", "user_id", "session_id", "reserved_seats",
		"reserved_seats_layout", "notification_list", "created_at", "updated_at"}).
		AddRow(id, status, userID, sessionID, n, []byte(seats), []byte(emails), testNow, testNow)
}

func userRow(id uint64, name, surname string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "email", "name", "surname", "password_hash", "role", "is_active", "created_at", "updated_at"}).
		AddRow(id, "host@example.com", name, surname, "x", "USER", true, testNow, testNow)
}

func invitationRow(id, userID uint64, status string, checkin bool) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "reservation_id", "session_id", "user_id", "cinema_id", "movie_id", "email",
		"session_date", "session_time", "status", "seat_row", "seat_col", "checkin", "checkin_at"})
	var at interface{}
	if checkin {
		at = testNow.Add(-time.Hour)
	}
	return rows.AddRow(id, 7, 1, userID, 3, 4, "guest@example.com", testDay, "20:00", status, 0, 1, checkin, at)
}

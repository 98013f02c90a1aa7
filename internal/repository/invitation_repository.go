package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/cinema-invitations/internal/model"
)

// InvitationRepo persists invitations: one row per reserved seat.
type InvitationRepo struct {
	db *sql.DB
}

// NewInvitationRepo returns a new InvitationRepo.
func NewInvitationRepo(db *sql.DB) *InvitationRepo { return &InvitationRepo{db: db} }

const invitationColumns = `id, reservation_id, session_id, user_id, cinema_id, movie_id, email,
       session_date, session_time, status, seat_row, seat_col, checkin, checkin_at`

func scanInvitation(row rowScanner) (*model.Invitation, error) {
	var inv model.Invitation
	var checkinAt sql.NullTime
	err := row.Scan(
		&inv.ID, &inv.ReservationID, &inv.SessionID, &inv.UserID, &inv.CinemaID, &inv.MovieID, &inv.Email,
		&inv.SessionDate, &inv.SessionTime, &inv.Status, &inv.Row, &inv.Column, &inv.Checkin, &checkinAt,
	)
	if err != nil {
		return nil, err
	}
	if checkinAt.Valid {
		t := checkinAt.Time
		inv.CheckinAt = &t
	}
	return &inv, nil
}

// CreateBulkTx inserts all invitations of a reservation in a single
// statement inside tx.  MySQL hands out consecutive auto-increment
// values for a single multi-row INSERT, so IDs are assigned from
// LastInsertId onwards in slice order.
func (r *InvitationRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, invs []model.Invitation) error {
	if len(invs) == 0 {
		return nil
	}
	query := `INSERT INTO invitations (reservation_id, session_id, user_id, cinema_id, movie_id, email, session_date, session_time, status, seat_row, seat_col) VALUES `
	args := make([]interface{}, 0, len(invs)*11)
	for i, inv := range invs {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
		args = append(args, inv.ReservationID, inv.SessionID, inv.UserID, inv.CinemaID, inv.MovieID, inv.Email,
			inv.SessionDate.Format("2006-01-02"), inv.SessionTime, inv.Status, inv.Row, inv.Column)
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	first, err := res.LastInsertId()
	if err != nil {
		return err
	}
	for i := range invs {
		invs[i].ID = uint64(first) + uint64(i)
	}
	return nil
}

// GetByID returns an invitation or ErrInvitationNotFound.
func (r *InvitationRepo) GetByID(ctx context.Context, id uint64) (*model.Invitation, error) {
	inv, err := scanInvitation(r.db.QueryRowContext(ctx, `SELECT `+invitationColumns+` FROM invitations WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvitationNotFound
	}
	return inv, err
}

// CancelByReservation moves every invitation of a reservation to
// cancelled and returns the number of rows changed.  Rows that were
// already cancelled are not counted.
func (r *InvitationRepo) CancelByReservation(ctx context.Context, reservationID uint64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE invitations SET status = 'cancelled' WHERE reservation_id = ?`, reservationID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CheckinIfValid performs the guarded transition checkin false → true.
// It only matches a valid, not yet checked-in invitation and reports
// whether it did.
func (r *InvitationRepo) CheckinIfValid(ctx context.Context, id uint64, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE invitations SET checkin = 1, checkin_at = ? WHERE id = ? AND status = 'valid' AND checkin = 0`,
		at.UTC(), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ListByReservation returns the invitations of a reservation in seat order.
func (r *InvitationRepo) ListByReservation(ctx context.Context, reservationID uint64) ([]model.Invitation, error) {
	return r.list(ctx, `SELECT `+invitationColumns+` FROM invitations WHERE reservation_id = ? ORDER BY id`, reservationID)
}

// ListValidBySession returns valid invitations of a session; the session
// edit cascade compares their snapshots against the new values.
func (r *InvitationRepo) ListValidBySession(ctx context.Context, sessionID uint64) ([]model.Invitation, error) {
	return r.list(ctx, `SELECT `+invitationColumns+` FROM invitations WHERE session_id = ? AND status = 'valid' ORDER BY id`, sessionID)
}

// RefreshSnapshot rewrites the session snapshot of every valid
// invitation of a session.
func (r *InvitationRepo) RefreshSnapshot(ctx context.Context, s *model.Session) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE invitations SET session_date = ?, session_time = ?, cinema_id = ?, movie_id = ?
         WHERE session_id = ? AND status = 'valid'`,
		s.StartDate.Format("2006-01-02"), s.StartTime, s.CinemaID, s.MovieID, s.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Stats counts a user's invitations grouped by status and check-in.
func (r *InvitationRepo) Stats(ctx context.Context, userID uint64) ([]model.InvitationStat, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, checkin, COUNT(*) FROM invitations WHERE user_id = ? GROUP BY status, checkin ORDER BY status, checkin`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.InvitationStat, 0)
	for rows.Next() {
		var st model.InvitationStat
		if err := rows.Scan(&st.Status, &st.Checkin, &st.Count); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (r *InvitationRepo) list(ctx context.Context, q string, args ...interface{}) ([]model.Invitation, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Invitation, 0)
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}

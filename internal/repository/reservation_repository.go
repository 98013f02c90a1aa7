package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/cinema-invitations/internal/model"
)

// ReservationRepo provides persistence for reservations.  A reservation
// stores its seat set and notification list as JSON columns; the
// individual invitations live in the invitations table and are managed
// by InvitationRepo.  Rows are never deleted: cancellation flips status.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying handle for transaction control.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

const reservationColumns = `id, status, user_id, session_id, reserved_seats, reserved_seats_layout, notification_list, created_at, updated_at`

func scanReservation(row rowScanner) (*model.Reservation, error) {
	var res model.Reservation
	err := row.Scan(
		&res.ID, &res.Status, &res.UserID, &res.SessionID, &res.ReservedSeats,
		&res.ReservedSeatsLayout, &res.NotificationList, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// CreateTx inserts a new reservation within the scope of an existing
// transaction and populates the generated ID.  The caller must commit or
// rollback the transaction.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	const q = `INSERT INTO reservations (status, user_id, session_id, reserved_seats, reserved_seats_layout, notification_list)
               VALUES (?, ?, ?, ?, ?, ?)`
	if res.Status == "" {
		res.Status = model.StatusValid
	}
	result, err := tx.ExecContext(ctx, q,
		res.Status, res.UserID, res.SessionID, res.ReservedSeats, res.ReservedSeatsLayout, res.NotificationList)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	return nil
}

// GetByID returns a reservation or ErrReservationNotFound.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	res, err := scanReservation(r.db.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReservationNotFound
	}
	return res, err
}

// GetForUpdateTx loads a reservation and locks its row so concurrent
// cancellations of the same reservation serialise.
func (r *ReservationRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Reservation, error) {
	res, err := scanReservation(tx.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ? FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReservationNotFound
	}
	return res, err
}

// MarkCancelledTx flips a valid reservation to cancelled.  It reports
// whether a row changed so callers can detect a lost race.
func (r *ReservationRepo) MarkCancelledTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE reservations SET status = 'cancelled' WHERE id = ? AND status = 'valid'`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ListByUser returns all reservations made by userID, newest first.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Reservation, error) {
	return r.list(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE user_id = ? ORDER BY id DESC`, userID)
}

// ListAll returns every reservation, newest first.  Staff only.
func (r *ReservationRepo) ListAll(ctx context.Context) ([]model.Reservation, error) {
	return r.list(ctx, `SELECT `+reservationColumns+` FROM reservations ORDER BY id DESC`)
}

// ListValidBySession returns the valid reservations of a session.  The
// reconciler rebuilds the expected grid from them.
func (r *ReservationRepo) ListValidBySession(ctx context.Context, sessionID uint64) ([]model.Reservation, error) {
	return r.list(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE session_id = ? AND status = 'valid' ORDER BY id`, sessionID)
}

// ListCancelledWithValidInvitations finds cancelled reservations whose
// cascade did not complete.
func (r *ReservationRepo) ListCancelledWithValidInvitations(ctx context.Context) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations r
               WHERE r.status = 'cancelled'
                 AND EXISTS (SELECT 1 FROM invitations i WHERE i.reservation_id = r.id AND i.status = 'valid')
               ORDER BY r.id`
	return r.list(ctx, q)
}

// CountValidBySessionTx counts valid reservations of a session.
func (r *ReservationRepo) CountValidBySessionTx(ctx context.Context, tx *sql.Tx, sessionID uint64) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM reservations WHERE session_id = ? AND status = 'valid'`, sessionID).Scan(&n)
	return n, err
}

func (r *ReservationRepo) list(ctx context.Context, q string, args ...interface{}) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

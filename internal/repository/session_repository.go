// Package repository contains data access logic for Session domain
// operations.  A Session is a scheduled screening of a movie in a cinema
// and carries its own copy of the seat grid.  The grid and the
// seats_available counter are written here only when a session is
// created or re-seated; every other change goes through SeatLockRepo.
package repository

import (
	"context"      // context for controlling query lifetime
	"database/sql" // sql provides DB abstraction
	"errors"       // errors.Is for sql.ErrNoRows
	"strings"      // duplicate key detection
	"time"         // reconcile cutoff

	"github.com/iliyamo/cinema-invitations/internal/model"
)

// SessionRepo manages persistence for sessions.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo returns a new SessionRepo.
func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// DB exposes the underlying sql.DB so services can begin transactions
// spanning multiple repositories.
func (r *SessionRepo) DB() *sql.DB {
	return r.db
}

const sessionColumns = `id, code, name, start_date, start_time, movie_id, cinema_id,
       seats_layout, seats_available, layout_version, active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*model.Session, error) {
	var s model.Session
	err := row.Scan(
		&s.ID, &s.Code, &s.Name, &s.StartDate, &s.StartTime, &s.MovieID, &s.CinemaID,
		&s.SeatsLayout, &s.SeatsAvailable, &s.LayoutVersion, &s.Active, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByID returns the session identified by id or ErrSessionNotFound.
func (r *SessionRepo) GetByID(ctx context.Context, id uint64) (*model.Session, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	return s, err
}

// GetForUpdateTx loads a session inside tx and locks its row until the
// transaction ends.
func (r *SessionRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Session, error) {
	s, err := scanSession(tx.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ? FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	return s, err
}

// GetDetail returns a session joined with its movie title and cinema
// name.  Used by public reads and by notifications.
func (r *SessionRepo) GetDetail(ctx context.Context, id uint64) (*model.SessionDetail, error) {
	const q = `SELECT s.id, s.code, s.name, s.start_date, s.start_time, s.movie_id, s.cinema_id,
                      s.seats_layout, s.seats_available, s.layout_version, s.active, s.created_at, s.updated_at,
                      m.title, c.name
               FROM sessions s
               JOIN movies m ON m.id = s.movie_id
               JOIN cinemas c ON c.id = s.cinema_id
               WHERE s.id = ?`
	var d model.SessionDetail
	s := &d.Session
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&s.ID, &s.Code, &s.Name, &s.StartDate, &s.StartTime, &s.MovieID, &s.CinemaID,
		&s.SeatsLayout, &s.SeatsAvailable, &s.LayoutVersion, &s.Active, &s.CreatedAt, &s.UpdatedAt,
		&d.MovieTitle, &d.CinemaName,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// CreateTx inserts a new session.  The caller supplies the grid copied
// from the cinema; seats_available is derived from it so the counter
// invariant holds from the first row.  On success the generated ID is
// set on s.
func (r *SessionRepo) CreateTx(ctx context.Context, tx *sql.Tx, s *model.Session) error {
	const q = `INSERT INTO sessions (code, name, start_date, start_time, movie_id, cinema_id, seats_layout, seats_available, active)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	s.SeatsAvailable = s.SeatsLayout.Free()
	res, err := tx.ExecContext(ctx, q,
		s.Code, s.Name, s.StartDate.Format("2006-01-02"), s.StartTime, s.MovieID, s.CinemaID,
		s.SeatsLayout, s.SeatsAvailable, s.Active)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicateCode
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// UpdateTx writes the editable session fields (code, name, start_date,
// start_time, movie_id, cinema_id, active).  The grid is left alone.
func (r *SessionRepo) UpdateTx(ctx context.Context, tx *sql.Tx, s *model.Session) error {
	const q = `UPDATE sessions SET code = ?, name = ?, start_date = ?, start_time = ?, movie_id = ?, cinema_id = ?, active = ?
               WHERE id = ?`
	_, err := tx.ExecContext(ctx, q,
		s.Code, s.Name, s.StartDate.Format("2006-01-02"), s.StartTime, s.MovieID, s.CinemaID, s.Active, s.ID)
	if err != nil && isDuplicate(err) {
		return ErrDuplicateCode
	}
	return err
}

// ReplaceLayoutTx overwrites the grid with a fresh copy (used when a
// session without valid reservations moves to another cinema).  The
// version is bumped like any other grid write.
func (r *SessionRepo) ReplaceLayoutTx(ctx context.Context, tx *sql.Tx, id uint64, layout model.Layout) error {
	const q = `UPDATE sessions SET seats_layout = ?, seats_available = ?, layout_version = layout_version + 1 WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, layout, layout.Free(), id)
	return err
}

// Delete removes a session that has no valid reservations.  It returns
// ErrSessionNotFound when the row is missing and ErrConflict when valid
// reservations still reference it.
func (r *SessionRepo) Delete(ctx context.Context, id uint64) error {
	const q = `DELETE FROM sessions WHERE id = ?
               AND NOT EXISTS (SELECT 1 FROM reservations WHERE session_id = ? AND status = 'valid')`
	res, err := r.db.ExecContext(ctx, q, id, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var exists int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrSessionNotFound
	}
	if err != nil {
		return err
	}
	return ErrConflict
}

// ListQuiet returns sessions whose row has not been written since
// cutoff.  The reconciler only inspects these so it never acts on a
// grid that a live request is in the middle of changing.
func (r *SessionRepo) ListQuiet(ctx context.Context, cutoff time.Time) ([]model.Session, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE updated_at < ? ORDER BY id`, cutoff.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// isDuplicate reports a MySQL duplicate key error (1062).
func isDuplicate(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "1062")
}

package repository // seat lock: atomic conditional claim/release of grid cells

import (
	"context"      // context for managing deadlines
	"database/sql" // sql provides DB interfaces
	"fmt"          // error wrapping
	"strings"      // query building

	"github.com/iliyamo/cinema-invitations/internal/model"
)

// SeatLockRepo mutates a session's seat grid.  Every operation is a
// single UPDATE whose WHERE clause requires each requested cell to hold
// the expected value; InnoDB's row lock on the session row makes the
// check and the write one indivisible step, so two concurrent claims
// for an overlapping seat set can never both match.  There are no
// in-process locks.
type SeatLockRepo struct {
	db *sql.DB
}

// NewSeatLockRepo constructs a SeatLockRepo given a DB handle.
func NewSeatLockRepo(db *sql.DB) *SeatLockRepo {
	return &SeatLockRepo{db: db}
}

// DB exposes the underlying handle so callers can open the transaction
// the claim participates in.
func (r *SeatLockRepo) DB() *sql.DB { return r.db }

// ClaimTx flips every requested cell from free to occupied and
// decrements seats_available by len(coords).  When any cell is already
// occupied (or the session does not exist) no row matches, nothing is
// written and ErrSeatsUnavailable is returned.
func (r *SeatLockRepo) ClaimTx(ctx context.Context, tx *sql.Tx, sessionID uint64, coords []model.SeatCoord) error {
	if len(coords) == 0 {
		return nil
	}
	q, args := seatFlipQuery(sessionID, coords, model.SeatFree, model.SeatOccupied, nil)
	n, err := execAffected(ctx, tx, q, args)
	if err != nil {
		return fmt.Errorf("claim seats: %w", err)
	}
	if n == 0 {
		return ErrSeatsUnavailable
	}
	return nil
}

// ReleaseTx is the inverse of ClaimTx: every cell must currently be
// occupied.  Zero matched rows means the ledger and the grid disagree
// and ErrSeatsNotOccupied is returned.
func (r *SeatLockRepo) ReleaseTx(ctx context.Context, tx *sql.Tx, sessionID uint64, coords []model.SeatCoord) error {
	if len(coords) == 0 {
		return nil
	}
	q, args := seatFlipQuery(sessionID, coords, model.SeatOccupied, model.SeatFree, nil)
	n, err := execAffected(ctx, tx, q, args)
	if err != nil {
		return fmt.Errorf("release seats: %w", err)
	}
	if n == 0 {
		return ErrSeatsNotOccupied
	}
	return nil
}

// ReleaseIfVersionTx releases cells only while layout_version still
// equals version.  The reconciler reads a grid, decides which cells are
// orphaned and then calls this; any claim or release in between bumps
// the version and the release silently becomes a no-op (false, nil).
func (r *SeatLockRepo) ReleaseIfVersionTx(ctx context.Context, tx *sql.Tx, sessionID, version uint64, coords []model.SeatCoord) (bool, error) {
	if len(coords) == 0 {
		return false, nil
	}
	q, args := seatFlipQuery(sessionID, coords, model.SeatOccupied, model.SeatFree, &version)
	n, err := execAffected(ctx, tx, q, args)
	if err != nil {
		return false, fmt.Errorf("release orphaned seats: %w", err)
	}
	return n > 0, nil
}

// seatFlipQuery builds
//
//	UPDATE sessions SET seats_layout = JSON_SET(seats_layout, ?, to, ...),
//	  seats_available = seats_available +/- n, layout_version = layout_version + 1
//	WHERE id = ? [AND layout_version = ?] AND JSON_EXTRACT(seats_layout, ?) = from AND ...
//
// JSON paths are bound as parameters, never interpolated.
func seatFlipQuery(sessionID uint64, coords []model.SeatCoord, from, to int, version *uint64) (string, []interface{}) {
	var b strings.Builder
	args := make([]interface{}, 0, len(coords)*2+2)
	b.WriteString("UPDATE sessions SET seats_layout = JSON_SET(seats_layout")
	for _, c := range coords {
		fmt.Fprintf(&b, ", ?, %d", to)
		args = append(args, c.JSONPath())
	}
	b.WriteString("), seats_available = seats_available ")
	if to == model.SeatOccupied {
		b.WriteString("- ")
	} else {
		b.WriteString("+ ")
	}
	fmt.Fprintf(&b, "%d, layout_version = layout_version + 1 WHERE id = ?", len(coords))
	args = append(args, sessionID)
	if version != nil {
		b.WriteString(" AND layout_version = ?")
		args = append(args, *version)
	}
	for _, c := range coords {
		fmt.Fprintf(&b, " AND JSON_EXTRACT(seats_layout, ?) = %d", from)
		args = append(args, c.JSONPath())
	}
	return b.String(), args
}

func execAffected(ctx context.Context, tx *sql.Tx, q string, args []interface{}) (int64, error) {
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/iliyamo/cinema-invitations/internal/model"
	"github.com/iliyamo/cinema-invitations/internal/repository"
)

// ReconcileReport summarises one reconciler pass.
type ReconcileReport struct {
	SessionsChecked  int
	SeatsReleased    int
	MissingSeats     int
	DoubleBooked     int
	CounterDrift     int
	CascadesRepaired int
}

// Reconciler compares each quiet session's grid with what its valid
// reservations say it should be.  Occupied cells no valid reservation
// owns are released with a version-guarded update, so a claim that lands
// between the read and the release wins.  It also finishes invitation
// cascades that failed after a cancel.  Every other mismatch is only
// logged: it needs a human.
type Reconciler struct {
	db           *sql.DB
	sessions     *repository.SessionRepo
	reservations *repository.ReservationRepo
	invitations  *repository.InvitationRepo
	cinemas      *repository.CinemaRepo
	locks        *repository.SeatLockRepo
	grace        time.Duration
	log          *slog.Logger
	now          func() time.Time
}

// NewReconciler builds a Reconciler that skips sessions written within grace.
func NewReconciler(db *sql.DB, grace time.Duration, log *slog.Logger) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{
		db:           db,
		sessions:     repository.NewSessionRepo(db),
		reservations: repository.NewReservationRepo(db),
		invitations:  repository.NewInvitationRepo(db),
		cinemas:      repository.NewCinemaRepo(db),
		locks:        repository.NewSeatLockRepo(db),
		grace:        grace,
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Schedule registers the reconciler as a gocron duration job.  Overlapping
// runs are skipped.
func (r *Reconciler) Schedule(s gocron.Scheduler, every time.Duration) (gocron.Job, error) {
	return s.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), every)
			defer cancel()
			rep, err := r.RunOnce(ctx)
			if err != nil {
				r.log.Error("reconcile pass failed", "err", err)
				return
			}
			r.log.Info("reconcile pass done",
				"sessions", rep.SessionsChecked, "released", rep.SeatsReleased,
				"missing", rep.MissingSeats, "double_booked", rep.DoubleBooked, "drift", rep.CounterDrift, "cascades", rep.CascadesRepaired)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("seat-reconciler"),
	)
}

// RunOnce performs a single pass.
func (r *Reconciler) RunOnce(ctx context.Context) (ReconcileReport, error) {
	var rep ReconcileReport
	sessions, err := r.sessions.ListQuiet(ctx, r.now().Add(-r.grace))
	if err != nil {
		return rep, fmt.Errorf("list sessions: %w", err)
	}
	for i := range sessions {
		if err := r.reconcileSession(ctx, &sessions[i], &rep); err != nil {
			return rep, err
		}
		rep.SessionsChecked++
	}

	stuck, err := r.reservations.ListCancelledWithValidInvitations(ctx)
	if err != nil {
		return rep, fmt.Errorf("list stuck cascades: %w", err)
	}
	for _, res := range stuck {
		n, err := r.invitations.CancelByReservation(ctx, res.ID)
		if err != nil {
			r.log.Error("cascade repair failed", "reservation_id", res.ID, "err", err)
			continue
		}
		if n > 0 {
			rep.CascadesRepaired++
			r.log.Warn("cascade repaired", "reservation_id", res.ID, "invitations", n)
		}
	}
	return rep, nil
}

func (r *Reconciler) reconcileSession(ctx context.Context, s *model.Session, rep *ReconcileReport) error {
	cinema, err := r.cinemas.GetByID(ctx, s.CinemaID)
	if err != nil {
		return fmt.Errorf("load cinema %d: %w", s.CinemaID, err)
	}
	valid, err := r.reservations.ListValidBySession(ctx, s.ID)
	if err != nil {
		return fmt.Errorf("list reservations of session %d: %w", s.ID, err)
	}

	orphans, missing, doubled, ok := diffGrid(s.SeatsLayout, cinema.SeatsLayout, valid)
	if !ok {
		r.log.Warn("session grid shape differs from cinema, skipped", "session_id", s.ID, "cinema_id", cinema.ID)
		return nil
	}
	if len(doubled) > 0 {
		rep.DoubleBooked += len(doubled)
		r.log.Error("seats owned by more than one reservation", "session_id", s.ID, "seats", doubled)
	}
	if len(missing) > 0 {
		rep.MissingSeats += len(missing)
		r.log.Error("reserved seats not occupied", "session_id", s.ID, "seats", missing)
	}
	if s.SeatsAvailable != s.SeatsLayout.Free() {
		rep.CounterDrift++
		r.log.Error("seats_available drift", "session_id", s.ID, "stored", s.SeatsAvailable, "free_cells", s.SeatsLayout.Free())
	}
	if len(orphans) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	released, err := r.locks.ReleaseIfVersionTx(ctx, tx, s.ID, s.LayoutVersion, orphans)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	if released {
		rep.SeatsReleased += len(orphans)
		r.log.Warn("orphaned seats released", "session_id", s.ID, "seats", orphans)
	}
	return nil
}

// diffGrid compares a session grid with the grid implied by the cinema
// template plus the valid reservations.  It returns the occupied cells
// nobody owns, the owned cells that are free, and the cells claimed by more
// than one owner (a reservation on a cell the template blocks counts as a
// second owner).  ok is false when the template no longer has the session's
// shape.
func diffGrid(grid, template model.Layout, valid []model.Reservation) (orphans, missing, doubled []model.SeatCoord, ok bool) {
	if grid.Rows() != template.Rows() || grid.Cols() != template.Cols() {
		return nil, nil, nil, false
	}
	expected := template.Clone()
	for _, res := range valid {
		if err := expected.Claim(res.ReservedSeatsLayout); err == nil {
			continue
		}
		// fall back to cell by cell to find the overlapping seats
		for _, c := range res.ReservedSeatsLayout {
			if err := expected.Claim([]model.SeatCoord{c}); errors.Is(err, model.ErrSeatTaken) {
				doubled = append(doubled, c)
			}
		}
	}
	for row := range grid {
		for col := range grid[row] {
			got, want := grid[row][col], expected[row][col]
			switch {
			case got == model.SeatOccupied && want == model.SeatFree:
				orphans = append(orphans, model.SeatCoord{row, col})
			case got == model.SeatFree && want == model.SeatOccupied:
				missing = append(missing, model.SeatCoord{row, col})
			}
		}
	}
	return orphans, missing, doubled, true
}

// Package service holds the reservation core: the ledger that claims
// seats and records reservations, the invitation cascade and check-in,
// session administration and the background reconciler.  Handlers call
// into it with an Actor and map the returned sentinel errors to HTTP.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/cinema-invitations/internal/model"
	"github.com/iliyamo/cinema-invitations/internal/queue"
	"github.com/iliyamo/cinema-invitations/internal/repository"
)

// CreateReservationInput is the ledger's view of a reservation request.
// Seats[i] is sent to Notifications[i].  ReservedSeats, when present, must
// equal the number of seats.
type CreateReservationInput struct {
	SessionID     uint64
	Seats         []model.SeatCoord
	Notifications []string
	ReservedSeats *int
}

// ReservationService is the reservation ledger.
type ReservationService struct {
	db           *sql.DB
	sessions     *repository.SessionRepo
	locks        *repository.SeatLockRepo
	reservations *repository.ReservationRepo
	invitations  *repository.InvitationRepo
	users        *repository.UserRepo
	notifier     Notifier
	validate     *validator.Validate
	log          *slog.Logger
	now          func() time.Time
}

// NewReservationService wires the ledger.  A nil notifier disables
// notifications and a nil logger falls back to slog.Default.
func NewReservationService(db *sql.DB, notifier Notifier, log *slog.Logger) *ReservationService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &ReservationService{
		db:           db,
		sessions:     repository.NewSessionRepo(db),
		locks:        repository.NewSeatLockRepo(db),
		reservations: repository.NewReservationRepo(db),
		invitations:  repository.NewInvitationRepo(db),
		users:        repository.NewUserRepo(db),
		notifier:     notifier,
		validate:     validator.New(),
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Create validates the request, then claims the seats, stores the
// reservation and fans out one invitation per seat in a single
// transaction.  A failed claim or insert rolls everything back, so a
// committed claim always has its reservation.  Events are published
// after commit; publish failures are logged and never undo the booking.
func (s *ReservationService) Create(ctx context.Context, actor Actor, in CreateReservationInput) (*model.Reservation, []model.Invitation, error) {
	session, err := s.sessions.GetByID(ctx, in.SessionID)
	if err != nil {
		return nil, nil, err
	}
	in.Notifications = normalizeEmails(in.Notifications)
	if err := s.validateRequest(session, in); err != nil {
		return nil, nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin reservation: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := s.locks.ClaimTx(ctx, tx, session.ID, in.Seats); err != nil {
		return nil, nil, err
	}
	res := &model.Reservation{
		Status:              model.StatusValid,
		UserID:              actor.UserID,
		SessionID:           session.ID,
		ReservedSeats:       len(in.Seats),
		ReservedSeatsLayout: model.SeatList(in.Seats),
		NotificationList:    model.EmailList(in.Notifications),
	}
	if err := s.reservations.CreateTx(ctx, tx, res); err != nil {
		return nil, nil, fmt.Errorf("insert reservation: %w", err)
	}
	invs := fanOut(res, session)
	if err := s.invitations.CreateBulkTx(ctx, tx, invs); err != nil {
		return nil, nil, fmt.Errorf("insert invitations: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit reservation: %w", err)
	}
	committed = true

	s.log.Info("reservation created", "reservation_id", res.ID, "session_id", session.ID, "user_id", actor.UserID, "seats", res.ReservedSeats)
	s.notifyCreated(ctx, actor.UserID, invs)
	return res, invs, nil
}

// validateRequest checks everything that can be rejected without
// touching the grid.
func (s *ReservationService) validateRequest(session *model.Session, in CreateReservationInput) error {
	if len(in.Seats) == 0 {
		return fmt.Errorf("%w: at least one seat is required", ErrValidation)
	}
	if len(in.Notifications) != len(in.Seats) {
		return fmt.Errorf("%w: notification list email count and reserved seats number must match exactly", ErrValidation)
	}
	if in.ReservedSeats != nil && *in.ReservedSeats != len(in.Seats) {
		return fmt.Errorf("%w: reservedSeats must equal the number of seats", ErrValidation)
	}
	for _, c := range in.Seats {
		if c.Row() < 0 || c.Col() < 0 {
			return fmt.Errorf("%w: seat %s has a negative index", ErrValidation, c)
		}
		if !session.SeatsLayout.Contains(c) {
			return fmt.Errorf("%w: seat %s is outside the session layout", ErrValidation, c)
		}
	}
	if dup, ok := model.FirstDuplicate(in.Seats); ok {
		return fmt.Errorf("%w: seat %s is listed more than once", ErrValidation, dup)
	}
	for _, email := range in.Notifications {
		if err := s.validate.Var(email, "required,email"); err != nil {
			return fmt.Errorf("%w: %q is not a valid email", ErrValidation, email)
		}
	}
	return nil
}

// normalizeEmails trims every address.  The result is what gets validated
// and stored on both the reservation and its invitations.
func normalizeEmails(in []string) []string {
	out := make([]string, len(in))
	for i, e := range in {
		out[i] = strings.TrimSpace(e)
	}
	return out
}

// fanOut builds one invitation per seat, paired by index with the
// notification list and carrying the session snapshot.
func fanOut(res *model.Reservation, session *model.Session) []model.Invitation {
	invs := make([]model.Invitation, len(res.ReservedSeatsLayout))
	for i, seat := range res.ReservedSeatsLayout {
		invs[i] = model.Invitation{
			ReservationID: res.ID,
			SessionID:     session.ID,
			UserID:        res.UserID,
			CinemaID:      session.CinemaID,
			MovieID:       session.MovieID,
			Email:         res.NotificationList[i],
			SessionDate:   session.StartDate,
			SessionTime:   session.StartTime,
			Status:        model.StatusValid,
			Row:           seat.Row(),
			Column:        seat.Col(),
		}
	}
	return invs
}

func (s *ReservationService) notifyCreated(ctx context.Context, userID uint64, invs []model.Invitation) {
	if _, off := s.notifier.(NopNotifier); off || len(invs) == 0 {
		return
	}
	detail, err := s.sessions.GetDetail(ctx, invs[0].SessionID)
	if err != nil {
		s.log.Warn("invitation events skipped: session detail", "session_id", invs[0].SessionID, "err", err)
		return
	}
	inviter := inviterName(ctx, s.users, userID)
	events := make([]queue.InvitationEvent, 0, len(invs))
	for _, inv := range invs {
		events = append(events, queue.InvitationEvent{
			Type:          queue.TypeInvitationCreated,
			InvitationID:  inv.ID,
			ReservationID: inv.ReservationID,
			Email:         inv.Email,
			InviterName:   inviter,
			Row:           inv.Row,
			Column:        inv.Column,
			Session:       sessionInfo(detail),
			OccurredAt:    s.now(),
		})
	}
	if err := s.notifier.Publish(ctx, events...); err != nil {
		s.log.Warn("invitation events not published", "reservation_id", invs[0].ReservationID, "err", err)
	}
}

// inviterName is the name shown in invitation emails: the user's full
// name, their email when no name is set, or "A friend" when the lookup fails.
func inviterName(ctx context.Context, users *repository.UserRepo, userID uint64) string {
	u, err := users.GetByID(ctx, userID)
	if err != nil {
		return "A friend"
	}
	name := strings.TrimSpace(u.Name + " " + u.Surname)
	if name == "" {
		return u.Email
	}
	return name
}

func sessionInfo(d *model.SessionDetail) queue.SessionInfo {
	return queue.SessionInfo{
		Date:       d.StartDate.Format("2006-01-02"),
		Time:       d.StartTime,
		MovieID:    d.MovieID,
		MovieTitle: d.MovieTitle,
		CinemaID:   d.CinemaID,
		CinemaName: d.CinemaName,
	}
}

// Cancel releases the reservation's seats and marks it cancelled in one
// transaction, then cascades the status to its invitations.  The cascade
// runs after commit: when it fails the reservation stays cancelled, the
// seats stay free and ErrCascadeFailed is returned.
func (s *ReservationService) Cancel(ctx context.Context, actor Actor, id uint64) (*model.Reservation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin cancel: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := s.reservations.GetForUpdateTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if res.Status == model.StatusCancelled {
		return nil, ErrAlreadyCancelled
	}
	if !actor.CanAccess(res.UserID) {
		return nil, repository.ErrForbidden
	}
	if err := s.locks.ReleaseTx(ctx, tx, res.SessionID, res.ReservedSeatsLayout); err != nil {
		if errors.Is(err, repository.ErrSeatsNotOccupied) {
			s.log.Error("reserved seats not occupied on cancel", "reservation_id", res.ID, "session_id", res.SessionID, "seats", res.ReservedSeatsLayout)
		}
		return nil, err
	}
	ok, err := s.reservations.MarkCancelledTx(ctx, tx, res.ID)
	if err != nil {
		return nil, fmt.Errorf("mark cancelled: %w", err)
	}
	if !ok {
		// the row is locked FOR UPDATE, so this only happens if it vanished
		return nil, ErrAlreadyCancelled
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit cancel: %w", err)
	}
	committed = true
	res.Status = model.StatusCancelled
	s.log.Info("reservation cancelled", "reservation_id", res.ID, "session_id", res.SessionID, "actor_id", actor.UserID)

	n, err := s.invitations.CancelByReservation(ctx, res.ID)
	if err != nil || n == 0 {
		s.log.Error("invitation cascade failed", "reservation_id", res.ID, "rows", n, "err", err)
		if err != nil {
			return res, fmt.Errorf("%w: %v", ErrCascadeFailed, err)
		}
		return res, ErrCascadeFailed
	}
	return res, nil
}

// Get returns a reservation visible to the actor.
func (s *ReservationService) Get(ctx context.Context, actor Actor, id uint64) (*model.Reservation, error) {
	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(res.UserID) {
		return nil, repository.ErrForbidden
	}
	return res, nil
}

// List returns the actor's reservations, or all of them for staff.
func (s *ReservationService) List(ctx context.Context, actor Actor) ([]model.Reservation, error) {
	if actor.Elevated() {
		return s.reservations.ListAll(ctx)
	}
	return s.reservations.ListByUser(ctx, actor.UserID)
}

// Invitations returns the invitations of a reservation visible to the actor.
func (s *ReservationService) Invitations(ctx context.Context, actor Actor, id uint64) ([]model.Invitation, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.invitations.ListByReservation(ctx, id)
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iliyamo/cinema-invitations/internal/model"
	"github.com/iliyamo/cinema-invitations/internal/queue"
	"github.com/iliyamo/cinema-invitations/internal/repository"
)

// InvitationService owns the invitation lifecycle after fan-out: the
// check-in state machine, the session edit notifications and reads.
type InvitationService struct {
	invitations *repository.InvitationRepo
	sessions    *repository.SessionRepo
	cinemas     *repository.CinemaRepo
	movies      *repository.MovieRepo
	users       *repository.UserRepo
	notifier    Notifier
	log         *slog.Logger
	now         func() time.Time
}

// NewInvitationService wires the invitation cascade.
func NewInvitationService(db *sql.DB, notifier Notifier, log *slog.Logger) *InvitationService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &InvitationService{
		invitations: repository.NewInvitationRepo(db),
		sessions:    repository.NewSessionRepo(db),
		cinemas:     repository.NewCinemaRepo(db),
		movies:      repository.NewMovieRepo(db),
		users:       repository.NewUserRepo(db),
		notifier:    notifier,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Checkin moves a valid invitation from not checked in to checked in.
// The transition is a single guarded UPDATE; when it matches nothing
// the row is re-read to say why.  The first check-in timestamp is never
// overwritten.
func (s *InvitationService) Checkin(ctx context.Context, actor Actor, id uint64) (*model.Invitation, error) {
	inv, err := s.invitations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(inv.UserID) {
		return nil, repository.ErrForbidden
	}
	ok, err := s.invitations.CheckinIfValid(ctx, id, s.now())
	if err != nil {
		return nil, fmt.Errorf("check in: %w", err)
	}
	current, err := s.invitations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ok {
		s.log.Info("invitation checked in", "invitation_id", id, "actor_id", actor.UserID)
		return current, nil
	}
	switch {
	case current.Status != model.StatusValid:
		return nil, ErrInvitationNotValid
	case current.Checkin:
		return nil, ErrAlreadyCheckedIn
	default:
		return nil, fmt.Errorf("check-in of invitation %d did not apply", id)
	}
}

// Get returns an invitation visible to the actor.
func (s *InvitationService) Get(ctx context.Context, actor Actor, id uint64) (*model.Invitation, error) {
	inv, err := s.invitations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(inv.UserID) {
		return nil, repository.ErrForbidden
	}
	return inv, nil
}

// Stats counts the actor's invitations by status and check-in.
func (s *InvitationService) Stats(ctx context.Context, actor Actor) ([]model.InvitationStat, error) {
	return s.invitations.Stats(ctx, actor.UserID)
}

// SessionChanged notifies every valid invitation of a session whose
// snapshot differs from the session's current date, time, cinema or
// movie, then refreshes the stored snapshots.  It returns the number of
// invitations notified.  Publish failures are logged; the snapshot is
// still refreshed so the next edit only reports its own delta.
func (s *InvitationService) SessionChanged(ctx context.Context, sessionID uint64) (int, error) {
	detail, err := s.sessions.GetDetail(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	invs, err := s.invitations.ListValidBySession(ctx, sessionID)
	if err != nil {
		return 0, fmt.Errorf("list invitations: %w", err)
	}
	current := sessionInfo(detail)
	names := newNameCache(s)
	events := make([]queue.InvitationEvent, 0)
	for _, inv := range invs {
		if !snapshotDiffers(inv, &detail.Session) {
			continue
		}
		prev := queue.SessionInfo{
			Date:       inv.SessionDate.Format("2006-01-02"),
			Time:       inv.SessionTime,
			MovieID:    inv.MovieID,
			MovieTitle: names.movie(ctx, inv.MovieID),
			CinemaID:   inv.CinemaID,
			CinemaName: names.cinema(ctx, inv.CinemaID),
		}
		events = append(events, queue.InvitationEvent{
			Type:          queue.TypeSessionChanged,
			InvitationID:  inv.ID,
			ReservationID: inv.ReservationID,
			Email:         inv.Email,
			InviterName:   names.user(ctx, inv.UserID),
			Row:           inv.Row,
			Column:        inv.Column,
			Session:       current,
			Previous:      &prev,
			OccurredAt:    s.now(),
		})
	}
	if len(events) == 0 {
		return 0, nil
	}
	if err := s.notifier.Publish(ctx, events...); err != nil {
		s.log.Warn("session change events not published", "session_id", sessionID, "count", len(events), "err", err)
	}
	if _, err := s.invitations.RefreshSnapshot(ctx, &detail.Session); err != nil {
		return len(events), fmt.Errorf("refresh invitation snapshot: %w", err)
	}
	s.log.Info("session change notified", "session_id", sessionID, "invitations", len(events))
	return len(events), nil
}

func snapshotDiffers(inv model.Invitation, s *model.Session) bool {
	return inv.SessionTime != s.StartTime ||
		inv.CinemaID != s.CinemaID ||
		inv.MovieID != s.MovieID ||
		inv.SessionDate.Format("2006-01-02") != s.StartDate.Format("2006-01-02")
}

// nameCache memoises display names while building a batch of events.
type nameCache struct {
	svc     *InvitationService
	movies  map[uint64]string
	cinemas map[uint64]string
	users   map[uint64]string
}

func newNameCache(s *InvitationService) *nameCache {
	return &nameCache{svc: s, movies: map[uint64]string{}, cinemas: map[uint64]string{}, users: map[uint64]string{}}
}

func (c *nameCache) movie(ctx context.Context, id uint64) string {
	if n, ok := c.movies[id]; ok {
		return n
	}
	n := ""
	if m, err := c.svc.movies.GetByID(ctx, id); err == nil {
		n = m.Title
	} else if !errors.Is(err, repository.ErrMovieNotFound) {
		c.svc.log.Warn("movie lookup failed", "movie_id", id, "err", err)
	}
	c.movies[id] = n
	return n
}

func (c *nameCache) cinema(ctx context.Context, id uint64) string {
	if n, ok := c.cinemas[id]; ok {
		return n
	}
	n := ""
	if cin, err := c.svc.cinemas.GetByID(ctx, id); err == nil {
		n = cin.Name
	} else if !errors.Is(err, repository.ErrCinemaNotFound) {
		c.svc.log.Warn("cinema lookup failed", "cinema_id", id, "err", err)
	}
	c.cinemas[id] = n
	return n
}

func (c *nameCache) user(ctx context.Context, id uint64) string {
	if n, ok := c.users[id]; ok {
		return n
	}
	n := inviterName(ctx, c.svc.users, id)
	c.users[id] = n
	return n
}

package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/iliyamo/cinema-invitations/internal/model"
	"github.com/iliyamo/cinema-invitations/internal/repository"
)

var startTimePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// SessionInput carries the fields staff may set on a session.  On update
// nil fields are left unchanged; on create every field except Active is
// required (Active defaults to true).
type SessionInput struct {
	Code      *uint64
	Name      *string
	StartDate *time.Time
	StartTime *string
	MovieID   *uint64
	CinemaID  *uint64
	Active    *bool
}

// SessionService implements staff administration of sessions, cinemas
// and movies, plus the public session reads.
type SessionService struct {
	db           *sql.DB
	sessions     *repository.SessionRepo
	reservations *repository.ReservationRepo
	cinemas      *repository.CinemaRepo
	movies       *repository.MovieRepo
	cascade      *InvitationService
	log          *slog.Logger
}

// NewSessionService wires session administration.  cascade receives the
// session change notifications.
func NewSessionService(db *sql.DB, cascade *InvitationService, log *slog.Logger) *SessionService {
	if log == nil {
		log = slog.Default()
	}
	return &SessionService{
		db:           db,
		sessions:     repository.NewSessionRepo(db),
		reservations: repository.NewReservationRepo(db),
		cinemas:      repository.NewCinemaRepo(db),
		movies:       repository.NewMovieRepo(db),
		cascade:      cascade,
		log:          log,
	}
}

// CreateSession schedules a session.  The seat grid and counter are
// copied from the cinema at this moment and never read from it again.
func (s *SessionService) CreateSession(ctx context.Context, in SessionInput) (*model.Session, error) {
	if in.Code == nil || in.Name == nil || in.StartDate == nil || in.StartTime == nil || in.MovieID == nil || in.CinemaID == nil {
		return nil, fmt.Errorf("%w: code, name, startDate, startTime, movieId and cinemaId are required", ErrValidation)
	}
	if err := checkSessionFields(in); err != nil {
		return nil, err
	}
	if _, err := s.movies.GetByID(ctx, *in.MovieID); err != nil {
		return nil, err
	}
	cinema, err := s.cinemas.GetByID(ctx, *in.CinemaID)
	if err != nil {
		return nil, err
	}
	session := &model.Session{
		Code:        *in.Code,
		Name:        strings.TrimSpace(*in.Name),
		StartDate:   dateOnly(*in.StartDate),
		StartTime:   *in.StartTime,
		MovieID:     *in.MovieID,
		CinemaID:    cinema.ID,
		SeatsLayout: cinema.SeatsLayout.Clone(),
		Active:      true,
	}
	if in.Active != nil {
		session.Active = *in.Active
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := s.sessions.CreateTx(ctx, tx, session); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	s.log.Info("session created", "session_id", session.ID, "cinema_id", cinema.ID, "seats", session.SeatsAvailable)
	return session, nil
}

// UpdateSession applies the whitelisted fields.  Moving a session to
// another cinema re-copies the grid, which is only allowed while the
// session has no valid reservations (ErrConflict otherwise).  When the
// date, time, cinema or movie changed, invited attendees are notified.
func (s *SessionService) UpdateSession(ctx context.Context, id uint64, in SessionInput) (*model.Session, error) {
	if err := checkSessionFields(in); err != nil {
		return nil, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	session, err := s.sessions.GetForUpdateTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	before := *session
	if in.Code != nil {
		session.Code = *in.Code
	}
	if in.Name != nil {
		session.Name = strings.TrimSpace(*in.Name)
	}
	if in.StartDate != nil {
		session.StartDate = dateOnly(*in.StartDate)
	}
	if in.StartTime != nil {
		session.StartTime = *in.StartTime
	}
	if in.Active != nil {
		session.Active = *in.Active
	}
	if in.MovieID != nil && *in.MovieID != session.MovieID {
		if _, err := s.movies.GetByID(ctx, *in.MovieID); err != nil {
			return nil, err
		}
		session.MovieID = *in.MovieID
	}
	if in.CinemaID != nil && *in.CinemaID != session.CinemaID {
		n, err := s.reservations.CountValidBySessionTx(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			return nil, fmt.Errorf("%w: session has %d valid reservations", repository.ErrConflict, n)
		}
		cinema, err := s.cinemas.GetByID(ctx, *in.CinemaID)
		if err != nil {
			return nil, err
		}
		if err := s.sessions.ReplaceLayoutTx(ctx, tx, id, cinema.SeatsLayout); err != nil {
			return nil, err
		}
		session.CinemaID = cinema.ID
		session.SeatsLayout = cinema.SeatsLayout.Clone()
		session.SeatsAvailable = cinema.SeatsLayout.Free()
	}
	if err := s.sessions.UpdateTx(ctx, tx, session); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	s.log.Info("session updated", "session_id", id)

	if scheduleChanged(&before, session) && s.cascade != nil {
		if _, err := s.cascade.SessionChanged(ctx, id); err != nil {
			s.log.Error("session change cascade failed", "session_id", id, "err", err)
		}
	}
	return session, nil
}

func scheduleChanged(a, b *model.Session) bool {
	return a.StartTime != b.StartTime || a.CinemaID != b.CinemaID || a.MovieID != b.MovieID ||
		!dateOnly(a.StartDate).Equal(dateOnly(b.StartDate))
}

// DeleteSession removes a session without valid reservations.
func (s *SessionService) DeleteSession(ctx context.Context, id uint64) error {
	return s.sessions.Delete(ctx, id)
}

// GetSession returns the public view of a session.
func (s *SessionService) GetSession(ctx context.Context, id uint64) (*model.SessionDetail, error) {
	return s.sessions.GetDetail(ctx, id)
}

// CreateCinema validates the template grid and stores the cinema.
func (s *SessionService) CreateCinema(ctx context.Context, c *model.Cinema) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if err := c.SeatsLayout.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return s.cinemas.Create(ctx, c)
}

// CreateMovie stores a movie.
func (s *SessionService) CreateMovie(ctx context.Context, m *model.Movie) error {
	m.Title = strings.TrimSpace(m.Title)
	if m.Title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	return s.movies.Create(ctx, m)
}

func checkSessionFields(in SessionInput) error {
	if in.StartTime != nil && !startTimePattern.MatchString(*in.StartTime) {
		return fmt.Errorf("%w: startTime must be HH:MM", ErrValidation)
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return fmt.Errorf("%w: name must not be empty", ErrValidation)
	}
	return nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

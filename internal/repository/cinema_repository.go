// Package repository contains data access logic separated from HTTP handlers.
// This file holds the reference data repositories: cinemas (which own the
// seat grid template copied into sessions) and movies.
package repository

import (
	"context"      // context allows passing deadlines and cancellation signals to DB operations
	"database/sql" // sql provides generic database operations and drivers
	"errors"       // errors.Is for sql.ErrNoRows

	"github.com/iliyamo/cinema-invitations/internal/model"
)

// CinemaRepo encapsulates all database queries related to cinemas.
type CinemaRepo struct {
	db *sql.DB // db is the underlying database connection pool
}

// NewCinemaRepo constructs a CinemaRepo with the provided DB handle.
func NewCinemaRepo(db *sql.DB) *CinemaRepo {
	return &CinemaRepo{db: db}
}

// Create inserts a new cinema.  seats_available is derived from the
// template so it always equals the number of free cells.  On success the
// cinema's ID field is populated.
func (r *CinemaRepo) Create(ctx context.Context, c *model.Cinema) error {
	const q = "INSERT INTO cinemas (code, name, seats_layout, seats_available, active) VALUES (?, ?, ?, ?, ?)"
	c.SeatsAvailable = c.SeatsLayout.Free()
	res, err := r.db.ExecContext(ctx, q, c.Code, c.Name, c.SeatsLayout, c.SeatsAvailable, c.Active)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicateCode
		}
		return err // propagate DB errors to the caller
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// GetByID fetches a cinema by its ID.  It returns ErrCinemaNotFound if no
// row is found.
func (r *CinemaRepo) GetByID(ctx context.Context, id uint64) (*model.Cinema, error) {
	const q = "SELECT id, code, name, seats_layout, seats_available, active, created_at, updated_at FROM cinemas WHERE id = ?"
	var c model.Cinema
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&c.ID, &c.Code, &c.Name, &c.SeatsLayout, &c.SeatsAvailable, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCinemaNotFound
		}
		return nil, err
	}
	return &c, nil
}

// MovieRepo encapsulates queries on movies.
type MovieRepo struct {
	db *sql.DB
}

// NewMovieRepo constructs a MovieRepo.
func NewMovieRepo(db *sql.DB) *MovieRepo {
	return &MovieRepo{db: db}
}

// Create inserts a movie and sets its ID.
func (r *MovieRepo) Create(ctx context.Context, m *model.Movie) error {
	res, err := r.db.ExecContext(ctx, "INSERT INTO movies (title) VALUES (?)", m.Title)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return nil
}

// GetByID fetches a movie or returns ErrMovieNotFound.
func (r *MovieRepo) GetByID(ctx context.Context, id uint64) (*model.Movie, error) {
	var m model.Movie
	err := r.db.QueryRowContext(ctx, "SELECT id, title, created_at FROM movies WHERE id = ?", id).
		Scan(&m.ID, &m.Title, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMovieNotFound
		}
		return nil, err
	}
	return &m, nil
}

// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios. For example, ErrForbidden indicates that the current user
// is not authorized to act on a reservation owned by someone else,
// while ErrSeatsUnavailable signals that a conditional seat claim lost
// against a concurrent reservation.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a delete or update cannot be
// performed because of conflicting state, such as attempting to
// delete a session that still has valid reservations. Handlers should
// translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrSeatsUnavailable is returned by a claim when at least one
// requested cell was not free at the instant of the update.  It is a
// business conflict (HTTP 409) and must not be retried automatically.
var ErrSeatsUnavailable = errors.New("seats already reserved")

// ErrSeatsNotOccupied is returned by a release when at least one cell
// recorded by a valid reservation is not occupied.  This means the grid
// and the ledger disagree, so it is reported as a 500.
var ErrSeatsNotOccupied = errors.New("reserved seats are not occupied")

var (
	// ErrSessionNotFound is returned when a session lookup misses.
	ErrSessionNotFound = errors.New("session not found")
	// ErrReservationNotFound is returned when a reservation lookup misses.
	ErrReservationNotFound = errors.New("reservation not found")
	// ErrInvitationNotFound is returned when an invitation lookup misses.
	ErrInvitationNotFound = errors.New("invitation not found")
	// ErrCinemaNotFound is returned when a cinema lookup misses.
	ErrCinemaNotFound = errors.New("cinema not found")
	// ErrMovieNotFound is returned when a movie lookup misses.
	ErrMovieNotFound = errors.New("movie not found")
	// ErrDuplicateCode is returned when a unique code collides (MySQL 1062).
	ErrDuplicateCode = errors.New("code already exists")
)

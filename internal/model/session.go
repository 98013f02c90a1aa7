package model

import "time"

// Session is a scheduled screening of a movie in a cinema.  Its seat grid
// and availability counter are a snapshot of the cinema taken at creation
// time and afterwards only change through the seat lock (claim/release).
//
// Invariant: SeatsAvailable == SeatsLayout.Free().
type Session struct {
	ID             uint64    `json:"id"`             // sessions.id
	Code           uint64    `json:"code"`           // sessions.code (unique)
	Name           string    `json:"name"`           // sessions.name
	StartDate      time.Time `json:"startDate"`      // sessions.start_date (DATE, UTC)
	StartTime      string    `json:"startTime"`      // sessions.start_time ("HH:MM")
	MovieID        uint64    `json:"movieId"`        // sessions.movie_id
	CinemaID       uint64    `json:"cinemaId"`       // sessions.cinema_id
	SeatsLayout    Layout    `json:"seatsLayout"`    // sessions.seats_layout (JSON)
	SeatsAvailable int       `json:"seatsAvailable"` // sessions.seats_available
	LayoutVersion  uint64    `json:"-"`              // sessions.layout_version, bumped on every claim/release
	Active         bool      `json:"active"`         // sessions.active
	CreatedAt      time.Time `json:"createdAt"`      // sessions.created_at
	UpdatedAt      time.Time `json:"updatedAt"`      // sessions.updated_at
}

// SessionDetail is a session joined with the names of its movie and
// cinema.  Notifications and public reads use it.
type SessionDetail struct {
	Session
	MovieTitle string `json:"movieTitle"`
	CinemaName string `json:"cinemaName"`
}

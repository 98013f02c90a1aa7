package model

import "time"

// Cinema is the venue reference data.  It owns the canonical seating
// template; a session copies SeatsLayout and SeatsAvailable when it is
// created and never reads the cinema again afterwards.
//
// Fields:
//  ID             – primary key identifier.
//  Code           – unique numeric code used by staff.
//  Name           – display name rendered in invitation emails.
//  SeatsLayout    – template grid (all cells normally free).
//  SeatsAvailable – number of free cells in the template.
//  Active         – whether new sessions may be scheduled here.
type Cinema struct {
	ID             uint64    `json:"id"`             // cinemas.id
	Code           uint64    `json:"code"`           // cinemas.code
	Name           string    `json:"name"`           // cinemas.name
	SeatsLayout    Layout    `json:"seatsLayout"`    // cinemas.seats_layout (JSON)
	SeatsAvailable int       `json:"seatsAvailable"` // cinemas.seats_available
	Active         bool      `json:"active"`         // cinemas.active
	CreatedAt      time.Time `json:"createdAt"`      // cinemas.created_at
	UpdatedAt      time.Time `json:"updatedAt"`      // cinemas.updated_at
}

// Movie is the film screened by a session.  Only the title is needed by
// the reservation core (it is rendered in invitation emails).
type Movie struct {
	ID        uint64    `json:"id"`        // movies.id
	Title     string    `json:"title"`     // movies.title
	CreatedAt time.Time `json:"createdAt"` // movies.created_at
}

package model

import "time"

// Invitation tracks one invited attendee for one reserved seat.  The
// session fields are a snapshot taken when the reservation was made and
// refreshed when staff edit the session.  Status mirrors the owning
// reservation.  Checkin flips from false to true exactly once.
type Invitation struct {
	ID            uint64     `json:"id"`            // invitations.id
	ReservationID uint64     `json:"reservationId"` // invitations.reservation_id
	SessionID     uint64     `json:"sessionId"`     // invitations.session_id
	UserID        uint64     `json:"userId"`        // invitations.user_id (who reserved)
	CinemaID      uint64     `json:"cinemaId"`      // invitations.cinema_id (snapshot)
	MovieID       uint64     `json:"movieId"`       // invitations.movie_id (snapshot)
	Email         string     `json:"email"`         // invitations.email
	SessionDate   time.Time  `json:"sessionDate"`   // invitations.session_date (snapshot)
	SessionTime   string     `json:"sessionTime"`   // invitations.session_time (snapshot)
	Status        string     `json:"status"`        // invitations.status
	Row           int        `json:"row"`           // invitations.seat_row
	Column        int        `json:"column"`        // invitations.seat_col
	Checkin       bool       `json:"checkin"`       // invitations.checkin
	CheckinAt     *time.Time `json:"checkinDate"`   // invitations.checkin_at (nullable)
}

// Seat returns the invitation's seat as a coordinate.
func (i Invitation) Seat() SeatCoord { return SeatCoord{i.Row, i.Column} }

// InvitationStat is one bucket of the per-user invitation statistics.
type InvitationStat struct {
	Status  string `json:"status"`
	Checkin bool   `json:"checkin"`
	Count   int    `json:"count"`
}

package model

import "time"

// Reservation statuses.  The state machine is valid → cancelled and
// cancelled is terminal; rows are never deleted.
const (
	StatusValid     = "valid"
	StatusCancelled = "cancelled"
)

// Reservation records the seats a user reserved for a session together
// with the people to invite.  ReservedSeatsLayout and NotificationList are
// index aligned: seat i is sent to NotificationList[i].
//
// Fields:
//  ID                  – primary key identifier.
//  Status              – valid or cancelled.
//  UserID              – user who made the reservation.
//  SessionID           – session being reserved.
//  ReservedSeats       – number of seats; equals both list lengths.
//  ReservedSeatsLayout – ordered [row, col] pairs.
//  NotificationList    – ordered email addresses.
type Reservation struct {
	ID                  uint64    `json:"id"`                  // reservations.id
	Status              string    `json:"status"`              // reservations.status
	UserID              uint64    `json:"userId"`              // reservations.user_id
	SessionID           uint64    `json:"sessionId"`           // reservations.session_id
	ReservedSeats       int       `json:"reservedSeats"`       // reservations.reserved_seats
	ReservedSeatsLayout SeatList  `json:"reservedSeatsLayout"` // reservations.reserved_seats_layout (JSON)
	NotificationList    EmailList `json:"notificationList"`    // reservations.notification_list (JSON)
	CreatedAt           time.Time `json:"createdAt"`           // reservations.created_at
	UpdatedAt           time.Time `json:"updatedAt"`           // reservations.updated_at
}

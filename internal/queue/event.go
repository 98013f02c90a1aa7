// Package queue defines the notification messages exchanged over
// RabbitMQ together with the publisher used by the API and the consumer
// that drives the mailer.
package queue

import "time"

// Event types carried in amqp.Publishing.Type and in the payload.
const (
	TypeInvitationCreated = "invitation.created"
	TypeSessionChanged    = "session.changed"
)

// SessionInfo is the session snapshot rendered in an email.
type SessionInfo struct {
	Date       string `json:"date"` // YYYY-MM-DD
	Time       string `json:"time"` // HH:MM
	MovieID    uint64 `json:"movie_id"`
	MovieTitle string `json:"movie_title"`
	CinemaID   uint64 `json:"cinema_id"`
	CinemaName string `json:"cinema_name"`
}

// InvitationEvent asks the mailer to email one invited attendee.  Row and
// Column are zero-based grid indices; templates show them one-based.
// Previous is only set for session.changed and holds the snapshot the
// attendee was last told about.
type InvitationEvent struct {
	ID            string       `json:"id"`
	Type          string       `json:"type"`
	InvitationID  uint64       `json:"invitation_id"`
	ReservationID uint64       `json:"reservation_id"`
	Email         string       `json:"email"`
	InviterName   string       `json:"inviter_name"`
	Row           int          `json:"row"`
	Column        int          `json:"column"`
	Session       SessionInfo  `json:"session"`
	Previous      *SessionInfo `json:"previous,omitempty"`
	OccurredAt    time.Time    `json:"occurred_at"`
}

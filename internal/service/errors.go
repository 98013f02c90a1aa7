package service

import "errors"

var (
	// ErrValidation wraps every request validation failure.  The wrapped
	// message is safe to return to the client.
	ErrValidation = errors.New("invalid request")
	// ErrAlreadyCancelled is returned when cancelling a cancelled reservation.
	ErrAlreadyCancelled = errors.New("reservation already cancelled")
	// ErrAlreadyCheckedIn is returned when an invitation was already used.
	ErrAlreadyCheckedIn = errors.New("check-in already happened")
	// ErrInvitationNotValid is returned when checking in a cancelled invitation.
	ErrInvitationNotValid = errors.New("no valid invitation")
	// ErrCascadeFailed is returned when a reservation was cancelled but its
	// invitations could not be moved to cancelled.  The seats stay released.
	ErrCascadeFailed = errors.New("invitation cascade failed")
)

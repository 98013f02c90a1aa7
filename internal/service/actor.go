package service

import (
	"context"

	"github.com/iliyamo/cinema-invitations/internal/model"
	"github.com/iliyamo/cinema-invitations/internal/queue"
)

// Actor identifies the authenticated caller of a service operation.
type Actor struct {
	UserID uint64
	Role   string
}

// Elevated reports whether the actor may act on other users' records.
func (a Actor) Elevated() bool { return model.IsElevated(a.Role) }

// CanAccess reports whether the actor owns the record or is elevated.
func (a Actor) CanAccess(ownerID uint64) bool { return a.UserID == ownerID || a.Elevated() }

// Notifier hands invitation events to the email collaborator.
// *queue.Publisher implements it.
type Notifier interface {
	Publish(ctx context.Context, events ...queue.InvitationEvent) error
}

// NopNotifier drops every event.  Used when the broker is disabled.
type NopNotifier struct{}

// Publish implements Notifier.
func (NopNotifier) Publish(context.Context, ...queue.InvitationEvent) error { return nil }

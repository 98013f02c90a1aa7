package mailer

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"github.com/iliyamo/cinema-invitations/internal/config"
	"github.com/iliyamo/cinema-invitations/internal/queue"
)

type fakeSender struct {
	errs  []error
	calls int
}

func (f *fakeSender) DialAndSendWithContext(_ context.Context, _ ...*mail.Msg) error {
	f.calls++
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

func event() queue.InvitationEvent {
	return queue.InvitationEvent{
		ID:           "7d1f",
		Type:         queue.TypeInvitationCreated,
		InvitationID: 11,
		Email:        "guest@example.com",
		InviterName:  "Ada Lovelace",
		Row:          2,
		Column:       4,
		Session:      queue.SessionInfo{Date: "2026-03-01", Time: "20:00", MovieTitle: "Metropolis", CinemaName: "Odeon"},
	}
}

func testMailer(s sender) *Mailer {
	m := newWithSender(config.MailConfig{From: "no-reply@cinema.local", FromName: "Cinema", Retries: 2, RetryBase: time.Millisecond}, s, nil)
	m.wait = func(context.Context, time.Duration) bool { return true }
	return m
}

func TestRenderInvitationShowsOneBasedSeat(t *testing.T) {
	subject, body, err := Render(event())
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace invited you to watch the movie Metropolis", subject)
	assert.Contains(t, body, "Row 3, seat 5")
	assert.Contains(t, body, "2026-03-01 at 20:00")
}

func TestRenderSessionChangedIncludesPrevious(t *testing.T) {
	ev := event()
	ev.Type = queue.TypeSessionChanged
	ev.Session.Time = "21:00"
	ev.Previous = &queue.SessionInfo{Date: "2026-03-01", Time: "20:00", CinemaName: "Odeon"}
	subject, body, err := Render(ev)
	require.NoError(t, err)
	assert.Contains(t, subject, "Metropolis")
	assert.Contains(t, body, "New schedule: 2026-03-01 at 21:00")
	assert.Contains(t, body, "Previously: 2026-03-01 at 20:00")
}

func TestRenderUnknownType(t *testing.T) {
	ev := event()
	ev.Type = "nope"
	_, _, err := Render(ev)
	assert.Error(t, err)
}

func TestHandleRetriesRefusedConnection(t *testing.T) {
	refused := fmt.Errorf("dial: %w", syscall.ECONNREFUSED)
	s := &fakeSender{errs: []error{refused, refused}}
	require.NoError(t, testMailer(s).Handle(context.Background(), event()))
	assert.Equal(t, 3, s.calls)
}

func TestHandleGivesUpAfterRetries(t *testing.T) {
	refused := fmt.Errorf("dial: %w", syscall.ECONNREFUSED)
	s := &fakeSender{errs: []error{refused, refused, refused, refused}}
	err := testMailer(s).Handle(context.Background(), event())
	assert.ErrorIs(t, err, syscall.ECONNREFUSED)
	assert.Equal(t, 3, s.calls)
}

func TestHandleDoesNotRetryOtherErrors(t *testing.T) {
	s := &fakeSender{errs: []error{errors.New("550 mailbox unavailable")}}
	assert.Error(t, testMailer(s).Handle(context.Background(), event()))
	assert.Equal(t, 1, s.calls)
}

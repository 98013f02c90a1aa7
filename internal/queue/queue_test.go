package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	amqp "github.com/rabbitmq/amqp091-go"
)

type recordingHandler struct {
	got []InvitationEvent
	err error
}

func (h *recordingHandler) Handle(_ context.Context, ev InvitationEvent) error {
	h.got = append(h.got, ev)
	return h.err
}

func TestBuildPublishingAssignsIDAndType(t *testing.T) {
	pub, err := buildPublishing(InvitationEvent{Type: TypeInvitationCreated, Email: "a@x.io", InvitationID: 3})
	require.NoError(t, err)
	assert.NotEmpty(t, pub.MessageId)
	assert.Equal(t, TypeInvitationCreated, pub.Type)
	assert.Equal(t, uint8(amqp.Persistent), pub.DeliveryMode)

	var ev InvitationEvent
	require.NoError(t, json.Unmarshal(pub.Body, &ev))
	assert.Equal(t, pub.MessageId, ev.ID)
	assert.Equal(t, uint64(3), ev.InvitationID)
	assert.False(t, ev.OccurredAt.IsZero())
}

func TestHandleMessageDispatches(t *testing.T) {
	h := &recordingHandler{}
	c := NewConsumer("amqp://unused/", "q", 0, h, nil)
	body, _ := json.Marshal(InvitationEvent{Type: TypeSessionChanged, Email: "a@x.io", Previous: &SessionInfo{Time: "18:00"}})

	require.NoError(t, c.handleMessage(context.Background(), body))
	require.Len(t, h.got, 1)
	assert.Equal(t, "18:00", h.got[0].Previous.Time)
}

func TestHandleMessageRejects(t *testing.T) {
	h := &recordingHandler{}
	c := NewConsumer("amqp://unused/", "q", 0, h, nil)
	ctx := context.Background()

	assert.Error(t, c.handleMessage(ctx, []byte("{")))
	unknown, _ := json.Marshal(InvitationEvent{Type: "other", Email: "a@x.io"})
	assert.Error(t, c.handleMessage(ctx, unknown))
	noMail, _ := json.Marshal(InvitationEvent{Type: TypeInvitationCreated})
	assert.Error(t, c.handleMessage(ctx, noMail))
	assert.Empty(t, h.got)

	h.err = errors.New("smtp down")
	ok, _ := json.Marshal(InvitationEvent{Type: TypeInvitationCreated, Email: "a@x.io"})
	assert.EqualError(t, c.handleMessage(ctx, ok), "smtp down")
}

func TestPublishNothingIsNoop(t *testing.T) {
	p := NewPublisher("amqp://127.0.0.1:1/", "q", nil)
	assert.NoError(t, p.Publish(context.Background()))
}

func TestSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, sleep(ctx, time.Hour))
	assert.True(t, sleep(context.Background(), time.Millisecond))
}

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends InvitationEvents to a durable queue.  It dials the
// broker per batch; publishing is best effort and the caller decides
// whether a failure matters.
type Publisher struct {
	url   string
	queue string
	log   *slog.Logger
}

// NewPublisher returns a Publisher for the given broker URL and queue.
func NewPublisher(url, queue string, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{url: url, queue: queue, log: log}
}

// Publish sends every event over one connection.  Events without an ID
// get a fresh UUID, which is also used as the AMQP message id.
func (p *Publisher) Publish(ctx context.Context, events ...InvitationEvent) error {
	if len(events) == 0 {
		return nil
	}
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.Warn("rabbitmq dial failed", "err", err)
		return fmt.Errorf("dial broker: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", p.queue, err)
	}

	for _, ev := range events {
		pub, err := buildPublishing(ev)
		if err != nil {
			return err
		}
		if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
			p.log.Warn("rabbitmq publish failed", "type", ev.Type, "invitation_id", ev.InvitationID, "err", err)
			return fmt.Errorf("publish %s: %w", ev.Type, err)
		}
	}
	p.log.Debug("events published", "count", len(events), "queue", p.queue)
	return nil
}

func buildPublishing(ev InvitationEvent) (amqp.Publishing, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Type:         ev.Type,
		Timestamp:    ev.OccurredAt,
		Body:         body,
	}, nil
}

package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
)

type MessageHandler interface {
	Handle(ctx context.Context, msg *sarama.ConsumerMessage) error
}

type Consumer struct {
	group   sarama.ConsumerGroup
	handler MessageHandler
}

func NewConsumer(brokers []string, groupID string, cfg *sarama.Config, handler MessageHandler) (*Consumer, error) {
	if cfg == nil {
		cfg = sarama.NewConfig()
	}
	cfg.Version = sarama.V2_5_0_0
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	g, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, err
	}
	return &Consumer{group: g, handler: handler}, nil
}

func (c *Consumer) Run(ctx context.Context, topics []string) error {
	for {
		if err := c.group.Consume(ctx, topics, consumerGroupHandler{handler: c.handler}); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *Consumer) Close() error {
	return c.group.Close()
}

type consumerGroupHandler struct {
	handler MessageHandler
}

func (h consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h consumerGroupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		if err := h.handler.Handle(sess.Context(), message); err != nil {
			// left unmarked; redelivered after a rebalance
			continue
		}
		sess.MarkMessage(message, "")
	}
	return nil
}

// StayEvent is the CloudEvents envelope written by the outbox relay.
type StayEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Source  string          `json:"source"`
	Subject string          `json:"subject"`
	Data    json.RawMessage `json:"data"`
}

// Inbox reports whether an event id was already handled.
type Inbox interface {
	Seen(ctx context.Context, eventID string) (bool, error)
}

// AuditLog tails the stay event topic into the structured log. With an Inbox
// set, redelivered events are logged once.
type AuditLog struct {
	Logger *slog.Logger
	Inbox  Inbox
}

func (a AuditLog) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var ev StayEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return fmt.Errorf("decode stay event at %s/%d/%d: %w", msg.Topic, msg.Partition, msg.Offset, err)
	}
	if a.Inbox != nil && ev.ID != "" {
		seen, err := a.Inbox.Seen(ctx, ev.ID)
		if err != nil {
			return fmt.Errorf("inbox %s: %w", ev.ID, err)
		}
		if seen {
			return nil
		}
	}
	if a.Logger != nil {
		a.Logger.InfoContext(ctx, "stay event", "type", ev.Type, "subject", ev.Subject, "id", ev.ID, "offset", msg.Offset)
	}
	return nil
}

// Package eventbus fans background notices out to the Discord notifier over
// an in-process watermill pub/sub.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/aussie-warriors/awbot/internal/observability/attr"
)

// Topics carry a Notice each. The topic picks the destination channel.
const (
	TopicOperatorAlert = "notice.operator"
	TopicLeaderNote    = "notice.leader_notes"
	TopicInfoLog       = "notice.info"
	TopicDonations     = "notice.donations"
)

// Topics lists every topic the notifier consumes.
func Topics() []string {
	return []string{TopicOperatorAlert, TopicLeaderNote, TopicInfoLog, TopicDonations}
}

// Embed colours used by notices.
const (
	ColorGreen  = 0x2ecc71
	ColorRed    = 0xe74c3c
	ColorOrange = 0xe67e22
	ColorBlue   = 0x3498db
)

// Field is a titled block inside a notice.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Notice is a message destined for a Discord channel.
type Notice struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Color       int       `json:"color,omitempty"`
	Fields      []Field   `json:"fields,omitempty"`
	Content     string    `json:"content,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Publisher publishes notices.
type Publisher interface {
	Publish(ctx context.Context, topic string, notice Notice) error
}

// EventBus is the in-process pub/sub.
type EventBus struct {
	pubsub *gochannel.GoChannel
	logger *slog.Logger
}

var _ Publisher = (*EventBus)(nil)

// NewEventBus creates the bus. Publishing never blocks on subscribers.
func NewEventBus(logger *slog.Logger) *EventBus {
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
	}, watermill.NewSlogLogger(logger))
	return &EventBus{pubsub: pubsub, logger: logger}
}

// Publish encodes notice and publishes it on topic.
func (eb *EventBus) Publish(ctx context.Context, topic string, notice Notice) error {
	if notice.Timestamp.IsZero() {
		notice.Timestamp = time.Now().UTC()
	}
	payload, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("failed to encode notice: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if id := attr.CorrelationIDFrom(ctx); id != "" {
		msg.Metadata.Set("correlation_id", id)
	}

	if err := eb.pubsub.Publish(topic, msg); err != nil {
		eb.logger.ErrorContext(ctx, "Failed to publish notice",
			attr.String("topic", topic),
			attr.Error(err),
		)
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}

	eb.logger.DebugContext(ctx, "Notice published",
		attr.String("topic", topic),
		attr.String("message_id", msg.UUID),
	)
	return nil
}

// Subscriber exposes the subscriber side for router registration.
func (eb *EventBus) Subscriber() message.Subscriber {
	return eb.pubsub
}

// Close closes the pub/sub.
func (eb *EventBus) Close() error {
	return eb.pubsub.Close()
}

// DecodeNotice reads a Notice from a message payload.
func DecodeNotice(msg *message.Message) (Notice, error) {
	var n Notice
	if err := json.Unmarshal(msg.Payload, &n); err != nil {
		return Notice{}, fmt.Errorf("failed to decode notice %s: %w", msg.UUID, err)
	}
	return n, nil
}

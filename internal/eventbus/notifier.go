package eventbus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/aussie-warriors/awbot/internal/observability/attr"
)

// NoticeSender delivers a notice to a Discord channel.
type NoticeSender interface {
	SendNotice(ctx context.Context, channelID string, notice Notice) error
}

// Notifier routes bus topics to Discord channels.
type Notifier struct {
	router   *message.Router
	bus      *EventBus
	sender   NoticeSender
	channels map[string]string
	logger   *slog.Logger
}

// NewNotifier registers one consumer handler per topic. channels maps a
// topic to a channel id; topics without a channel are acked and dropped.
func NewNotifier(bus *EventBus, sender NoticeSender, channels map[string]string, logger *slog.Logger) (*Notifier, error) {
	router, err := message.NewRouter(message.RouterConfig{}, watermill.NewSlogLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create notifier router: %w", err)
	}

	n := &Notifier{
		router:   router,
		bus:      bus,
		sender:   sender,
		channels: channels,
		logger:   logger.With(attr.String("component", "notifier")),
	}

	for _, topic := range Topics() {
		router.AddConsumerHandler("notifier."+topic, topic, bus.Subscriber(), n.handler(topic))
	}
	return n, nil
}

func (n *Notifier) handler(topic string) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		ctx := attr.WithCorrelationID(msg.Context(), msg.Metadata.Get("correlation_id"))

		channelID := n.channels[topic]
		if channelID == "" {
			n.logger.WarnContext(ctx, "No channel configured for notice, dropping",
				attr.String("topic", topic),
			)
			return nil
		}

		notice, err := DecodeNotice(msg)
		if err != nil {
			n.logger.ErrorContext(ctx, "Dropping undecodable notice", attr.Error(err))
			return nil
		}

		if err := n.sender.SendNotice(ctx, channelID, notice); err != nil {
			// Discord rejections are not retried; the next notice still goes out.
			n.logger.ErrorContext(ctx, "Failed to deliver notice",
				attr.String("topic", topic),
				attr.String("channel_id", channelID),
				attr.Error(err),
			)
		}
		return nil
	}
}

// Run blocks until ctx is cancelled or Close is called.
func (n *Notifier) Run(ctx context.Context) error {
	return n.router.Run(ctx)
}

// Running is closed once the router handlers are subscribed.
func (n *Notifier) Running() chan struct{} {
	return n.router.Running()
}

// Close stops the router.
func (n *Notifier) Close() error {
	return n.router.Close()
}

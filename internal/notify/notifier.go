package notify

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/kewsys/registry/internal/config"
	"github.com/kewsys/registry/internal/logger"
	"github.com/kewsys/registry/internal/pubsub"
	"github.com/kewsys/registry/internal/types"
	jsoniter "github.com/json-iterator/go"
)

// Event is the envelope delivered to websocket clients and webhooks
type Event struct {
	ID        string    `json:"id"`
	Name      string    `json:"event"`
	Payload   any       `json:"data"`
	ActorID   string    `json:"actorId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier emits live update and alert events. Emit is fire and forget.
type Notifier interface {
	Emit(ctx context.Context, event string, payload any)
}

type notifier struct {
	publisher pubsub.Publisher
	topic     string
	enabled   bool
	logger    *logger.Logger
}

func NewNotifier(cfg *config.Configuration, publisher pubsub.Publisher, logger *logger.Logger) Notifier {
	return &notifier{
		publisher: publisher,
		topic:     cfg.PubSub.NotifyTopic,
		enabled:   cfg.Notify.Enabled,
		logger:    logger,
	}
}

func (n *notifier) Emit(ctx context.Context, event string, payload any) {
	if !n.enabled || event == "" {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			n.logger.Errorw("notifier panicked", "panic", r, "event", event)
		}
	}()

	evt := Event{
		ID:        types.GenerateMessageID(),
		Name:      event,
		Payload:   payload,
		ActorID:   types.GetUserID(ctx),
		Timestamp: time.Now().UTC(),
	}
	data, err := jsoniter.Marshal(evt)
	if err != nil {
		n.logger.Errorw("failed to marshal event", "error", err, "event", event)
		return
	}

	msg := message.NewMessage(evt.ID, data)
	msg.Metadata.Set("event", event)

	if err := n.publisher.Publish(ctx, n.topic, msg); err != nil {
		n.logger.Errorw("failed to publish event",
			"error", err,
			"event", event,
		)
	}
}

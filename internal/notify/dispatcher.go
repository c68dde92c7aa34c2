package notify

import (
	"context"
	"net/http"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/kewsys/registry/internal/config"
	"github.com/kewsys/registry/internal/httpclient"
	"github.com/kewsys/registry/internal/logger"
	"github.com/kewsys/registry/internal/pubsub"
	"github.com/kewsys/registry/internal/pubsub/router"
	"github.com/kewsys/registry/internal/schema"
	jsoniter "github.com/json-iterator/go"
	"github.com/samber/lo"
)

// alertEvents are forwarded to the webhook when no explicit list is configured
var alertEvents = []string{
	schema.EventInventoryLowStock,
	schema.EventLivestockHealthAlert,
}

// Dispatcher delivers published events to the websocket hub and the optional webhook
type Dispatcher struct {
	hub        *Hub
	client     httpclient.Client
	subscriber pubsub.Subscriber
	topic      string
	webhookURL string
	events     []string
	logger     *logger.Logger
}

func NewDispatcher(
	cfg *config.Configuration,
	hub *Hub,
	client httpclient.Client,
	subscriber pubsub.Subscriber,
	logger *logger.Logger,
) *Dispatcher {
	events := cfg.Notify.WebhookEvents
	if len(events) == 0 {
		events = alertEvents
	}
	return &Dispatcher{
		hub:        hub,
		client:     client,
		subscriber: subscriber,
		topic:      cfg.PubSub.NotifyTopic,
		webhookURL: cfg.Notify.WebhookURL,
		events:     events,
		logger:     logger,
	}
}

// RegisterHandler subscribes the dispatcher on r
func (d *Dispatcher) RegisterHandler(r *router.Router) {
	r.AddNoPublishHandler(
		"event_dispatcher",
		d.topic,
		d.subscriber,
		d.Handle,
	)
	d.logger.Infow("registered event dispatcher",
		"topic", d.topic,
		"webhook_enabled", d.webhookURL != "",
	)
}

// Handle never returns an error, a redelivery would repeat the broadcast
func (d *Dispatcher) Handle(msg *message.Message) error {
	d.hub.Broadcast(msg.Payload)

	event := msg.Metadata.Get("event")
	if d.webhookURL == "" || !lo.Contains(d.events, event) {
		return nil
	}

	if err := d.forward(msg.Context(), msg.Payload); err != nil {
		d.logger.Errorw("failed to forward event to webhook",
			"error", err,
			"event", event,
			"message_uuid", msg.UUID,
		)
	}
	return nil
}

func (d *Dispatcher) forward(ctx context.Context, payload []byte) error {
	// payload is already the marshalled Event, check it decodes before sending
	if !jsoniter.Valid(payload) {
		d.logger.Warnw("skipping malformed event payload")
		return nil
	}

	_, err := d.client.Send(ctx, &httpclient.Request{
		Method: http.MethodPost,
		URL:    d.webhookURL,
		Body:   payload,
	})
	return err
}

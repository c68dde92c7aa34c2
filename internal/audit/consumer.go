package audit

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/kewsys/registry/internal/config"
	"github.com/kewsys/registry/internal/domain/auditlog"
	ierr "github.com/kewsys/registry/internal/errors"
	"github.com/kewsys/registry/internal/logger"
	"github.com/kewsys/registry/internal/pubsub"
	"github.com/kewsys/registry/internal/pubsub/router"
	jsoniter "github.com/json-iterator/go"
)

// Consumer persists published audit entries into the audit_logs table
type Consumer struct {
	repo       auditlog.Repository
	subscriber pubsub.Subscriber
	topic      string
	logger     *logger.Logger
}

func NewConsumer(cfg *config.Configuration, repo auditlog.Repository, subscriber pubsub.Subscriber, logger *logger.Logger) *Consumer {
	return &Consumer{
		repo:       repo,
		subscriber: subscriber,
		topic:      cfg.PubSub.AuditTopic,
		logger:     logger,
	}
}

// RegisterHandler subscribes the consumer on r
func (c *Consumer) RegisterHandler(r *router.Router) {
	r.AddNoPublishHandler(
		"audit_log_writer",
		c.topic,
		c.subscriber,
		c.Handle,
	)
	c.logger.Infow("registered audit log handler", "topic", c.topic)
}

// Handle stores one message. Redelivered entries are already stored and are acked.
func (c *Consumer) Handle(msg *message.Message) error {
	var log auditlog.AuditLog
	if err := jsoniter.Unmarshal(msg.Payload, &log); err != nil {
		// malformed payloads never become valid, ack them
		c.logger.Errorw("failed to unmarshal audit entry",
			"error", err,
			"message_uuid", msg.UUID,
		)
		return nil
	}

	err := c.repo.Create(msg.Context(), &log)
	if err != nil && !ierr.IsAlreadyExists(err) {
		return err
	}
	return nil
}

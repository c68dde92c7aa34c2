package audit

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/kewsys/registry/internal/config"
	"github.com/kewsys/registry/internal/domain/auditlog"
	"github.com/kewsys/registry/internal/logger"
	"github.com/kewsys/registry/internal/pubsub"
	"github.com/kewsys/registry/internal/types"
	jsoniter "github.com/json-iterator/go"
)

// Entry is what a service knows about a mutation. The acting user and client
// details are taken from the request context by the sink.
type Entry struct {
	Action     types.AuditAction
	Module     string
	RecordID   string
	RecordType string
	OldValue   map[string]any
	NewValue   map[string]any
	Status     types.AuditStatus
	Message    string
}

// Sink receives an entry for every mutating call. Record never fails the caller,
// delivery problems are logged and dropped.
type Sink interface {
	Record(ctx context.Context, entry Entry)
}

type sink struct {
	publisher pubsub.Publisher
	topic     string
	enabled   bool
	logger    *logger.Logger
}

func NewSink(cfg *config.Configuration, publisher pubsub.Publisher, logger *logger.Logger) Sink {
	return &sink{
		publisher: publisher,
		topic:     cfg.PubSub.AuditTopic,
		enabled:   cfg.Audit.Enabled,
		logger:    logger,
	}
}

func (s *sink) Record(ctx context.Context, entry Entry) {
	if !s.enabled {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Errorw("audit sink panicked", "panic", r, "action", entry.Action, "module", entry.Module)
		}
	}()

	log := NewAuditLog(ctx, entry, time.Now().UTC())
	payload, err := jsoniter.Marshal(log)
	if err != nil {
		s.logger.Errorw("failed to marshal audit entry",
			"error", err,
			"action", entry.Action,
			"module", entry.Module,
		)
		return
	}

	msg := message.NewMessage(types.GenerateMessageID(), payload)
	msg.Metadata.Set("action", string(log.Action))
	msg.Metadata.Set("module", log.Module)
	msg.Metadata.Set("request_id", types.GetRequestID(ctx))

	if err := s.publisher.Publish(ctx, s.topic, msg); err != nil {
		s.logger.Errorw("failed to publish audit entry",
			"error", err,
			"action", log.Action,
			"module", log.Module,
			"record_id", log.RecordID,
		)
		return
	}

	s.logger.WithContext(ctx).Debugw("audit entry published",
		"audit_id", log.ID,
		"action", log.Action,
		"module", log.Module,
		"record_id", log.RecordID,
	)
}

// NewAuditLog stamps entry with the actor and client found in ctx
func NewAuditLog(ctx context.Context, entry Entry, now time.Time) *auditlog.AuditLog {
	status := entry.Status
	if status == "" {
		status = types.AuditStatusSuccess
	}
	return &auditlog.AuditLog{
		ID:         types.GenerateUUID(),
		UserID:     types.GetUserID(ctx),
		Username:   types.GetUsername(ctx),
		Action:     entry.Action,
		Module:     entry.Module,
		RecordID:   entry.RecordID,
		RecordType: entry.RecordType,
		OldValue:   entry.OldValue,
		NewValue:   entry.NewValue,
		IPAddress:  types.GetIPAddress(ctx),
		UserAgent:  types.GetUserAgent(ctx),
		Status:     status,
		Message:    entry.Message,
		CreatedAt:  now,
	}
}

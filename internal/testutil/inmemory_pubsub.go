package testutil

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/kewsys/registry/internal/domain/auditlog"
	"github.com/kewsys/registry/internal/types"
	jsoniter "github.com/json-iterator/go"
)

// InMemoryPubSub keeps every published message so tests can inspect what the
// audit sink and the notifier sent
type InMemoryPubSub struct {
	subscribers map[string][]chan *message.Message
	messages    map[string][]*message.Message
	mu          sync.RWMutex
}

// NewInMemoryPubSub creates a new instance of InMemoryPubSub
func NewInMemoryPubSub() *InMemoryPubSub {
	return &InMemoryPubSub{
		subscribers: make(map[string][]chan *message.Message),
		messages:    make(map[string][]*message.Message),
	}
}

// Publish implements pubsub.Publisher interface
func (ps *InMemoryPubSub) Publish(ctx context.Context, topic string, msg *message.Message) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	ps.messages[topic] = append(ps.messages[topic], msg)
	for _, ch := range ps.subscribers[topic] {
		select {
		case ch <- msg:
		default:
		}
	}
	return nil
}

// Subscribe implements pubsub.Subscriber interface
func (ps *InMemoryPubSub) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	ch := make(chan *message.Message, 100)
	ps.subscribers[topic] = append(ps.subscribers[topic], ch)
	return ch, nil
}

// Close implements pubsub.PubSub interface
func (ps *InMemoryPubSub) Close() error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	for _, subscribers := range ps.subscribers {
		for _, ch := range subscribers {
			close(ch)
		}
	}
	ps.subscribers = make(map[string][]chan *message.Message)
	return nil
}

// GetMessages returns all messages published to a topic
func (ps *InMemoryPubSub) GetMessages(topic string) []*message.Message {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return append([]*message.Message(nil), ps.messages[topic]...)
}

// ClearMessages clears all stored messages
func (ps *InMemoryPubSub) ClearMessages() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.messages = make(map[string][]*message.Message)
}

// AuditLogs decodes the audit entries published to topic
func (ps *InMemoryPubSub) AuditLogs(topic string) []*auditlog.AuditLog {
	out := make([]*auditlog.AuditLog, 0)
	for _, msg := range ps.GetMessages(topic) {
		var l auditlog.AuditLog
		if err := jsoniter.Unmarshal(msg.Payload, &l); err == nil {
			out = append(out, &l)
		}
	}
	return out
}

// AuditActions lists the actions of the audit entries published to topic
func (ps *InMemoryPubSub) AuditActions(topic string) []types.AuditAction {
	logs := ps.AuditLogs(topic)
	out := make([]types.AuditAction, len(logs))
	for i, l := range logs {
		out[i] = l.Action
	}
	return out
}

// EventNames lists the "event" metadata of every message published to topic
func (ps *InMemoryPubSub) EventNames(topic string) []string {
	msgs := ps.GetMessages(topic)
	out := make([]string, len(msgs))
	for i, msg := range msgs {
		out[i] = msg.Metadata.Get("event")
	}
	return out
}

// NewMessage wraps payload in a message with a fresh id
func NewMessage(payload []byte) *message.Message {
	return message.NewMessage(types.GenerateMessageID(), payload)
}

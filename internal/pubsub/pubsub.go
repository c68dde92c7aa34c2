package pubsub

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
)

// Publisher publishes audit entries and live events onto a topic
type Publisher interface {
	Publish(ctx context.Context, topic string, msg *message.Message) error
	Close() error
}

// Subscriber consumes a topic
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error)
	Close() error
}

// PubSub combines both Publisher and Subscriber interfaces
type PubSub interface {
	Publisher
	Subscriber
}

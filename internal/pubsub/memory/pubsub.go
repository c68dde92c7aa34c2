package memory

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/kewsys/registry/internal/logger"
	"github.com/kewsys/registry/internal/pubsub"
)

// PubSub implements pubsub.PubSub on watermill's gochannel, for single process deployments
type PubSub struct {
	pubsub *gochannel.GoChannel
	logger *logger.Logger
}

func NewPubSub(logger *logger.Logger) pubsub.PubSub {
	goChannel := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            256,
			BlockPublishUntilSubscriberAck: false,
		},
		watermill.NewStdLogger(false, false),
	)

	return &PubSub{
		pubsub: goChannel,
		logger: logger,
	}
}

func (p *PubSub) Publish(ctx context.Context, topic string, msg *message.Message) error {
	return p.pubsub.Publish(topic, msg)
}

func (p *PubSub) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return p.pubsub.Subscribe(ctx, topic)
}

func (p *PubSub) Close() error {
	return p.pubsub.Close()
}

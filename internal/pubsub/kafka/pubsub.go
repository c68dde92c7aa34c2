package kafka

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/Shopify/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/kewsys/registry/internal/config"
	"github.com/kewsys/registry/internal/logger"
	"github.com/kewsys/registry/internal/pubsub"
)

type PubSub struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	logger     *logger.Logger
}

// NewPubSub connects a kafka publisher and a subscriber in consumerGroup.
// Subscribers sharing a group split the topic between them, a group of its
// own gives an instance every message.
func NewPubSub(cfg *config.Configuration, logger *logger.Logger, consumerGroup string) (pubsub.PubSub, error) {
	saramaConfig := GetSaramaConfig(cfg)
	wmLogger := watermill.NewStdLogger(false, false)

	publisher, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:               cfg.Kafka.Brokers,
			Marshaler:             kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: saramaConfig,
		},
		wmLogger,
	)
	if err != nil {
		return nil, err
	}

	subscriber, err := kafka.NewSubscriber(
		kafka.SubscriberConfig{
			Brokers:               cfg.Kafka.Brokers,
			ConsumerGroup:         consumerGroup,
			Unmarshaler:           kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: saramaConfig,
		},
		wmLogger,
	)
	if err != nil {
		_ = publisher.Close()
		return nil, err
	}

	logger.Infow("kafka pubsub connected",
		"brokers", cfg.Kafka.Brokers,
		"consumer_group", consumerGroup,
	)

	return &PubSub{
		publisher:  publisher,
		subscriber: subscriber,
		logger:     logger,
	}, nil
}

func (p *PubSub) Publish(ctx context.Context, topic string, msg *message.Message) error {
	return p.publisher.Publish(topic, msg)
}

func (p *PubSub) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return p.subscriber.Subscribe(ctx, topic)
}

func (p *PubSub) Close() error {
	perr := p.publisher.Close()
	serr := p.subscriber.Close()
	if perr != nil {
		return perr
	}
	return serr
}

func GetSaramaConfig(cfg *config.Configuration) *sarama.Config {
	saramaConfig := kafka.DefaultSaramaSyncPublisherConfig()
	saramaConfig.Version = sarama.V2_1_0_0
	saramaConfig.ClientID = cfg.Kafka.ClientID

	// start from the oldest offset when the group has none committed
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaConfig.Consumer.Offsets.AutoCommit.Enable = true
	saramaConfig.Consumer.Offsets.AutoCommit.Interval = 5 * time.Second
	saramaConfig.Consumer.Offsets.Retry.Max = 3

	if cfg.Kafka.TLS {
		saramaConfig.Net.TLS.Enable = true
		saramaConfig.Net.TLS.Config = &tls.Config{}
	}

	if !cfg.Kafka.UseSASL {
		return saramaConfig
	}

	saramaConfig.Net.SASL.Enable = true
	saramaConfig.Net.TLS.Enable = true
	saramaConfig.Net.SASL.Mechanism = sarama.SASLMechanism(cfg.Kafka.SASLMechanism)
	saramaConfig.Net.SASL.User = cfg.Kafka.SASLUser
	saramaConfig.Net.SASL.Password = cfg.Kafka.SASLPassword

	return saramaConfig
}

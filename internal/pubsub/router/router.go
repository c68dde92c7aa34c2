package router

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/kewsys/registry/internal/logger"
	"github.com/kewsys/registry/internal/sentry"
)

const (
	maxRetries      = 3
	initialInterval = 500 * time.Millisecond
	maxInterval     = 5 * time.Second
)

// Router runs the background consumers of the audit and notify topics
type Router struct {
	router *message.Router
	logger *logger.Logger
	sentry *sentry.Service
}

// NewRouter creates a message router with recovery, correlation ids and retries.
// A message still failing after the retries is acked and dropped, the side
// channels it carries are best effort.
func NewRouter(logger *logger.Logger, sentry *sentry.Service) (*Router, error) {
	router, err := message.NewRouter(
		message.RouterConfig{},
		watermill.NewStdLogger(false, false),
	)
	if err != nil {
		return nil, err
	}

	r := &Router{
		router: router,
		logger: logger,
		sentry: sentry,
	}

	router.AddMiddleware(
		r.dropFailed,
		middleware.Recoverer,
		middleware.CorrelationID,
		middleware.Retry{
			MaxRetries:          maxRetries,
			InitialInterval:     initialInterval,
			MaxInterval:         maxInterval,
			Multiplier:          2,
			RandomizationFactor: 0.5,
			OnRetryHook: func(retryNum int, delay time.Duration) {
				logger.Debugw("retrying message",
					"retry_number", retryNum,
					"max_retries", maxRetries,
					"delay", delay,
				)
			},
		}.Middleware,
	)

	return r, nil
}

// dropFailed reports a message that exhausted its retries and acks it
func (r *Router) dropFailed(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		msgs, err := h(msg)
		if err == nil {
			return msgs, nil
		}
		r.sentry.CaptureException(msg.Context(), err)
		r.logger.Errorw("dropping message after retries",
			"handler", message.HandlerNameFromCtx(msg.Context()),
			"error", err,
			"correlation_id", middleware.MessageCorrelationID(msg),
			"message_uuid", msg.UUID,
		)
		return nil, nil
	}
}

// AddNoPublishHandler adds a handler that doesn't publish messages
func (r *Router) AddNoPublishHandler(
	handlerName string,
	topicName string,
	subscriber message.Subscriber,
	handlerFunc func(msg *message.Message) error,
) {
	r.router.AddNoPublisherHandler(
		handlerName,
		topicName,
		subscriber,
		func(msg *message.Message) error {
			err := handlerFunc(msg)
			if err != nil {
				r.logger.Debugw("handler failed",
					"handler", handlerName,
					"error", err,
					"message_uuid", msg.UUID,
				)
			}
			return err
		},
	)
}

// Run starts the router and blocks until ctx is done or Close is called
func (r *Router) Run(ctx context.Context) error {
	r.logger.Info("starting message router")
	return r.router.Run(ctx)
}

// Running is closed once every handler is subscribed
func (r *Router) Running() chan struct{} {
	return r.router.Running()
}

// Close gracefully shuts down the router
func (r *Router) Close() error {
	r.logger.Info("closing message router")
	return r.router.Close()
}

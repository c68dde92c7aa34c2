package sentry

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/kewsys/registry/internal/config"
	"github.com/kewsys/registry/internal/logger"
	"github.com/kewsys/registry/internal/types"
	"go.uber.org/fx"
)

type Service struct {
	cfg    *config.Configuration
	logger *logger.Logger
}

// Module provides fx options for Sentry
func Module() fx.Option {
	return fx.Options(
		fx.Provide(NewSentryService),
		fx.Invoke(RegisterHooks),
	)
}

// RegisterHooks initialises the sdk on start and flushes buffered events on stop
func RegisterHooks(lc fx.Lifecycle, svc *Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if !svc.cfg.Sentry.Enabled {
				svc.logger.Info("Sentry is disabled")
				return nil
			}

			err := sentry.Init(sentry.ClientOptions{
				Dsn:              svc.cfg.Sentry.DSN,
				Environment:      svc.cfg.Sentry.Environment,
				EnableTracing:    true,
				TracesSampleRate: svc.cfg.Sentry.SampleRate,
				TracesSampler: sentry.TracesSampler(func(ctx sentry.SamplingContext) float64 {
					if ctx.Span.Name == "GET /health" {
						return 0.0
					}
					return svc.cfg.Sentry.SampleRate
				}),
			})
			if err != nil {
				svc.logger.Errorw("failed to initialize sentry", "error", err)
				return err
			}
			svc.logger.Infow("sentry initialized",
				"environment", svc.cfg.Sentry.Environment,
				"sample_rate", svc.cfg.Sentry.SampleRate,
			)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if svc.cfg.Sentry.Enabled {
				sentry.Flush(2 * time.Second)
			}
			return nil
		},
	})
}

func NewSentryService(cfg *config.Configuration, logger *logger.Logger) *Service {
	return &Service{
		cfg:    cfg,
		logger: logger,
	}
}

func (s *Service) IsEnabled() bool {
	return s != nil && s.cfg.Sentry.Enabled
}

// CaptureException reports err tagged with the request and actor found in ctx
func (s *Service) CaptureException(ctx context.Context, err error) {
	if !s.IsEnabled() || err == nil {
		return
	}

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub().Clone()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		if requestID := types.GetRequestID(ctx); requestID != "" {
			scope.SetTag("request_id", requestID)
		}
		if userID := types.GetUserID(ctx); userID != "" {
			scope.SetUser(sentry.User{ID: userID, Username: types.GetUsername(ctx)})
		}
		hub.CaptureException(err)
	})
}

// StartDBSpan starts a postgres span under the transaction in ctx
func (s *Service) StartDBSpan(ctx context.Context, operation string, params map[string]interface{}) (*sentry.Span, context.Context) {
	if !s.IsEnabled() {
		return nil, ctx
	}

	span := sentry.StartSpan(ctx, operation)
	span.Description = operation
	span.Op = "db.postgres"
	for k, v := range params {
		span.SetData(k, v)
	}
	return span, span.Context()
}

// FinishSpan finishes span when tracing is on, marking it failed when err is set
func FinishSpan(span *sentry.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.Status = sentry.SpanStatusInternalError
		span.SetData("error", err.Error())
	} else {
		span.Status = sentry.SpanStatusOK
	}
	span.Finish()
}

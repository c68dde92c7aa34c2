package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/kewsys/registry/internal/api"
	v1 "github.com/kewsys/registry/internal/api/v1"
	"github.com/kewsys/registry/internal/audit"
	"github.com/kewsys/registry/internal/auth"
	"github.com/kewsys/registry/internal/cache"
	"github.com/kewsys/registry/internal/config"
	"github.com/kewsys/registry/internal/httpclient"
	"github.com/kewsys/registry/internal/logger"
	"github.com/kewsys/registry/internal/notify"
	"github.com/kewsys/registry/internal/postgres"
	"github.com/kewsys/registry/internal/pubsub"
	"github.com/kewsys/registry/internal/pubsub/kafka"
	"github.com/kewsys/registry/internal/pubsub/memory"
	pubsubRouter "github.com/kewsys/registry/internal/pubsub/router"
	"github.com/kewsys/registry/internal/pyroscope"
	"github.com/kewsys/registry/internal/rbac"
	"github.com/kewsys/registry/internal/report"
	"github.com/kewsys/registry/internal/repository"
	"github.com/kewsys/registry/internal/s3"
	"github.com/kewsys/registry/internal/schema"
	"github.com/kewsys/registry/internal/sentry"
	"github.com/kewsys/registry/internal/service"
	"github.com/kewsys/registry/internal/types"
	"github.com/kewsys/registry/internal/validator"
	"go.uber.org/fx"

	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
)

// @title KEW Registry API
// @version 1.0
// @description Asset, inventory and livestock registry with approval workflows
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Enter the token in the format *Bearer &lt;token&gt;*

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	// Initialize Fx application
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			// Validator
			validator.NewValidator,

			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Cache
			cache.NewInMemoryCache,

			// Postgres
			postgres.NewDB,
			providePostgresClient,

			// Entity registry
			schema.NewDefaultRegistry,

			// Repositories
			repository.NewRecordProvider,
			repository.NewUserRepository,
			repository.NewAuditLogRepository,

			// PubSub
			providePubSub,
			providePublisher,
			provideSubscriber,
			pubsubRouter.NewRouter,

			// Side channels
			audit.NewSink,
			notify.NewNotifier,
			notify.NewHub,
			provideHTTPClient,
			provideDispatcher,
			audit.NewConsumer,

			// Auth, reports and archiving
			auth.NewProvider,
			report.NewGenerator,
			s3.NewService,
			rbac.NewRBACService,
		),
	)

	// Monitoring
	opts = append(opts,
		sentry.Module(),
		pyroscope.Module(),
	)

	// Service layer
	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,

			service.NewRecordServices,
			service.NewReportService,
			service.NewInventoryService,
			service.NewAuthService,
			service.NewUserService,
			service.NewAuditLogService,
			service.NewDashboardService,
		),
	)

	// API
	opts = append(opts,
		fx.Provide(
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(
			startServer,
		),
	)

	app := fx.New(opts...)
	app.Run()
}

func providePostgresClient(db *postgres.DB) postgres.IClient {
	return db
}

// providePubSub connects the configured driver. Kafka subscribers share the
// configured consumer group so audit entries are written once per cluster.
func providePubSub(lc fx.Lifecycle, cfg *config.Configuration, log *logger.Logger) (pubsub.PubSub, error) {
	var (
		ps  pubsub.PubSub
		err error
	)

	switch cfg.PubSub.Driver {
	case types.PubSubDriverMemory, "":
		ps = memory.NewPubSub(log)
	case types.PubSubDriverKafka:
		ps, err = kafka.NewPubSub(cfg, log, cfg.Kafka.ConsumerGroup)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown pubsub driver: %s", cfg.PubSub.Driver)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return ps.Close()
		},
	})
	return ps, nil
}

func providePublisher(ps pubsub.PubSub) pubsub.Publisher {
	return ps
}

func provideSubscriber(ps pubsub.PubSub) pubsub.Subscriber {
	return ps
}

func provideHTTPClient(cfg *config.Configuration, log *logger.Logger) httpclient.Client {
	return httpclient.NewDefaultClient(httpclient.ClientConfig{
		Timeout:    cfg.Notify.WebhookTimeout,
		MaxRetries: cfg.Notify.WebhookMaxRetries,
	}, log)
}

// provideDispatcher gives every API instance its own kafka consumer group on
// the events topic, websocket clients connected to any instance see every event.
func provideDispatcher(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	hub *notify.Hub,
	client httpclient.Client,
	shared pubsub.Subscriber,
	log *logger.Logger,
) (*notify.Dispatcher, error) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			hub.Close()
			return nil
		},
	})

	if cfg.PubSub.Driver != types.PubSubDriverKafka {
		return notify.NewDispatcher(cfg, hub, client, shared, log), nil
	}

	host, err := os.Hostname()
	if err != nil {
		host = types.GenerateShortIDWithPrefix("api")
	}
	ps, err := kafka.NewPubSub(cfg, log, fmt.Sprintf("%s-events-%s", cfg.Kafka.ConsumerGroup, host))
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return ps.Close()
		},
	})
	return notify.NewDispatcher(cfg, hub, client, ps, log), nil
}

func provideHandlers(
	db *postgres.DB,
	logger *logger.Logger,
	hub *notify.Hub,
	recordServices service.RecordServices,
	reportService service.ReportService,
	inventoryService service.InventoryService,
	authService service.AuthService,
	userService service.UserService,
	auditLogService service.AuditLogService,
	dashboardService service.DashboardService,
) api.Handlers {
	return api.Handlers{
		Health:    v1.NewHealthHandler(db, logger),
		Auth:      v1.NewAuthHandler(authService, logger),
		User:      v1.NewUserHandler(userService, logger),
		AuditLog:  v1.NewAuditLogHandler(auditLogService, logger),
		Inventory: v1.NewInventoryHandler(inventoryService, logger),
		Events:    v1.NewEventsHandler(hub, logger),
		Dashboard: v1.NewDashboardHandler(dashboardService, logger),
		Records:   v1.NewRecordHandlers(recordServices, reportService, logger),
	}
}

func provideRouter(
	handlers api.Handlers,
	cfg *config.Configuration,
	logger *logger.Logger,
	authService service.AuthService,
	rbacService *rbac.RBACService,
	sentryService *sentry.Service,
	pyroscopeService *pyroscope.Service,
) *gin.Engine {
	return api.NewRouter(handlers, api.RouterParams{
		Config:        cfg,
		Logger:        logger,
		Authenticator: authService,
		RBAC:          rbacService,
		Sentry:        sentryService,
		Pyroscope:     pyroscopeService,
	})
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	router *pubsubRouter.Router,
	consumer *audit.Consumer,
	dispatcher *notify.Dispatcher,
	log *logger.Logger,
) {
	mode := cfg.Deployment.Mode
	if mode == "" {
		mode = types.ModeLocal
	}

	switch mode {
	case types.ModeLocal:
		startAPIServer(lc, r, cfg, log)
		consumer.RegisterHandler(router)
		dispatcher.RegisterHandler(router)
		startMessageRouter(lc, router, log)
	case types.ModeAPI:
		startAPIServer(lc, r, cfg, log)
		dispatcher.RegisterHandler(router)
		startMessageRouter(lc, router, log)
	case types.ModeConsumer:
		if cfg.PubSub.Driver != types.PubSubDriverKafka {
			log.Fatal("kafka pubsub driver required for consumer mode")
		}
		consumer.RegisterHandler(router)
		startMessageRouter(lc, router, log)
	case types.ModeAWSLambdaAPI:
		startAWSLambdaAPI(r)
	default:
		log.Fatalf("Unknown deployment mode: %s", mode)
	}
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	log.Info("Registering API server start hook")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting API server...")
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return nil
		},
	})
}

func startAWSLambdaAPI(r *gin.Engine) {
	ginLambda := ginadapter.New(r)
	lambda.Start(ginLambda.ProxyWithContext)
}

func startMessageRouter(
	lc fx.Lifecycle,
	router *pubsubRouter.Router,
	logger *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("starting message router")
			go func() {
				// the start context is cancelled once OnStart returns
				if err := router.Run(context.Background()); err != nil {
					logger.Errorw("message router failed", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping message router")
			return router.Close()
		},
	})
}

package testutil

import (
	"context"
	"time"

	"github.com/kewsys/registry/internal/audit"
	"github.com/kewsys/registry/internal/cache"
	"github.com/kewsys/registry/internal/config"
	"github.com/kewsys/registry/internal/domain/auditlog"
	"github.com/kewsys/registry/internal/logger"
	"github.com/kewsys/registry/internal/notify"
	"github.com/kewsys/registry/internal/schema"
	"github.com/kewsys/registry/internal/validator"
	"github.com/stretchr/testify/suite"
)

// Stores holds all the repositories used by service tests
type Stores struct {
	Records   *InMemoryRecordProvider
	UserRepo  *InMemoryUserStore
	AuditRepo *InMemoryAuditLogStore
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx      context.Context
	stores   Stores
	pubsub   *InMemoryPubSub
	sink     audit.Sink
	notifier notify.Notifier
	cache    cache.Cache
	db       *MockPostgresClient
	registry *schema.Registry
	logger   *logger.Logger
	config   *config.Configuration
	now      time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	validator.NewValidator()

	s.config = config.GetDefaultConfig()
	s.logger = logger.NewNopLogger()
	s.registry = schema.NewDefaultRegistry()
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = SetupContext()
	s.now = time.Now().UTC()
	s.stores = Stores{
		Records:   NewInMemoryRecordProvider(),
		UserRepo:  NewInMemoryUserStore(),
		AuditRepo: NewInMemoryAuditLogStore(),
	}
	s.pubsub = NewInMemoryPubSub()
	s.sink = audit.NewSink(s.config, s.pubsub, s.logger)
	s.notifier = notify.NewNotifier(s.config, s.pubsub, s.logger)
	s.cache = cache.NewInMemoryCache(s.config)
	s.db = NewMockPostgresClient(s.logger)
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.stores.Records.Clear()
	s.stores.UserRepo.Clear()
	s.stores.AuditRepo.Clear()
	s.pubsub.ClearMessages()
	s.cache.Flush(context.Background())
}

// GetContext returns the admin test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetStores returns all test repositories
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetPubSub returns the pubsub the sink and notifier publish to
func (s *BaseServiceTestSuite) GetPubSub() *InMemoryPubSub {
	return s.pubsub
}

func (s *BaseServiceTestSuite) GetAuditSink() audit.Sink {
	return s.sink
}

func (s *BaseServiceTestSuite) GetNotifier() notify.Notifier {
	return s.notifier
}

func (s *BaseServiceTestSuite) GetCache() cache.Cache {
	return s.cache
}

// GetDB returns the test database client
func (s *BaseServiceTestSuite) GetDB() *MockPostgresClient {
	return s.db
}

func (s *BaseServiceTestSuite) GetRegistry() *schema.Registry {
	return s.registry
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetNow returns the time captured when the test started
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}

// Entity returns the registered descriptor called name
func (s *BaseServiceTestSuite) Entity(name string) *schema.Entity {
	e, ok := s.registry.Get(name)
	s.Require().True(ok, "entity %s is not registered", name)
	return e
}

// AuditLogs decodes the audit entries published so far
func (s *BaseServiceTestSuite) AuditLogs() []*auditlog.AuditLog {
	return s.pubsub.AuditLogs(s.config.PubSub.AuditTopic)
}

// Events lists the notifier events published so far
func (s *BaseServiceTestSuite) Events() []string {
	return s.pubsub.EventNames(s.config.PubSub.NotifyTopic)
}

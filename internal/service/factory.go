package service

import (
	"github.com/kewsys/registry/internal/audit"
	"github.com/kewsys/registry/internal/auth"
	"github.com/kewsys/registry/internal/cache"
	"github.com/kewsys/registry/internal/config"
	"github.com/kewsys/registry/internal/domain/auditlog"
	"github.com/kewsys/registry/internal/domain/record"
	"github.com/kewsys/registry/internal/domain/user"
	"github.com/kewsys/registry/internal/logger"
	"github.com/kewsys/registry/internal/notify"
	"github.com/kewsys/registry/internal/postgres"
	"github.com/kewsys/registry/internal/report"
	"github.com/kewsys/registry/internal/s3"
	"github.com/kewsys/registry/internal/schema"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger   *logger.Logger
	Config   *config.Configuration
	DB       postgres.IClient
	Registry *schema.Registry
	Cache    cache.Cache

	// Repositories
	RecordProvider record.Provider
	UserRepo       user.Repository
	AuditLogRepo   auditlog.Repository

	// Fire and forget side channels
	AuditSink audit.Sink
	Notifier  notify.Notifier

	Auth    auth.Provider
	Reports report.Generator
	// S3 is nil when report archiving is disabled
	S3 s3.Service
}

// Common service params
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db postgres.IClient,
	registry *schema.Registry,
	cache cache.Cache,
	recordProvider record.Provider,
	userRepo user.Repository,
	auditLogRepo auditlog.Repository,
	auditSink audit.Sink,
	notifier notify.Notifier,
	authProvider auth.Provider,
	reports report.Generator,
	s3Service s3.Service,
) ServiceParams {
	return ServiceParams{
		Logger:         logger,
		Config:         config,
		DB:             db,
		Registry:       registry,
		Cache:          cache,
		RecordProvider: recordProvider,
		UserRepo:       userRepo,
		AuditLogRepo:   auditLogRepo,
		AuditSink:      auditSink,
		Notifier:       notifier,
		Auth:           authProvider,
		Reports:        reports,
		S3:             s3Service,
	}
}

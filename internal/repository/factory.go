package repository

import (
	"github.com/kewsys/registry/internal/domain/auditlog"
	"github.com/kewsys/registry/internal/domain/record"
	"github.com/kewsys/registry/internal/domain/user"
	"github.com/kewsys/registry/internal/logger"
	"github.com/kewsys/registry/internal/postgres"
	postgresRepo "github.com/kewsys/registry/internal/repository/postgres"
)

func NewRecordProvider(db *postgres.DB, logger *logger.Logger) record.Provider {
	return postgresRepo.NewRecordProvider(db, logger)
}

func NewUserRepository(db *postgres.DB, logger *logger.Logger) user.Repository {
	return postgresRepo.NewUserRepository(db, logger)
}

func NewAuditLogRepository(db *postgres.DB, logger *logger.Logger) auditlog.Repository {
	return postgresRepo.NewAuditLogRepository(db, logger)
}

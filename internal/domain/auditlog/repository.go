package auditlog

import (
	"context"

	"github.com/kewsys/registry/internal/types"
)

type Repository interface {
	Create(ctx context.Context, log *AuditLog) error
	Get(ctx context.Context, id string) (*AuditLog, error)
	// List returns newest first
	List(ctx context.Context, filter *types.AuditLogFilter) ([]*AuditLog, error)
	Count(ctx context.Context, filter *types.AuditLogFilter) (int, error)
	// CountBy groups matching entries by "action" or "module"
	CountBy(ctx context.Context, field string, filter *types.AuditLogFilter) (map[string]int, error)
	TopUsers(ctx context.Context, limit int) ([]UserActivity, error)
}

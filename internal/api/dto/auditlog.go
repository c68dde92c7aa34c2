package dto

import (
	"github.com/kewsys/registry/internal/domain/auditlog"
	"github.com/kewsys/registry/internal/types"
)

type ListAuditLogsResponse struct {
	Logs       []*auditlog.AuditLog     `json:"logs"`
	Pagination types.PaginationResponse `json:"pagination"`
}

type AuditLogStatsResponse struct {
	TotalLogs int `json:"totalLogs"`
	// RecentActivity counts entries of the last 24 hours
	RecentActivity int                     `json:"recentActivity"`
	ByAction       map[string]int          `json:"byAction"`
	ByModule       map[string]int          `json:"byModule"`
	TopUsers       []auditlog.UserActivity `json:"topUsers"`
}

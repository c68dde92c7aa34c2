package auditlog

import (
	"time"

	"github.com/kewsys/registry/internal/types"
)

// AuditLog is one recorded mutation or sign in
type AuditLog struct {
	ID         string            `json:"id"`
	UserID     string            `json:"userId"`
	Username   string            `json:"username"`
	Action     types.AuditAction `json:"action"`
	Module     string            `json:"module"`
	RecordID   string            `json:"recordId"`
	RecordType string            `json:"recordType"`
	OldValue   map[string]any    `json:"oldValue"`
	NewValue   map[string]any    `json:"newValue"`
	IPAddress  string            `json:"ipAddress"`
	UserAgent  string            `json:"userAgent"`
	Status     types.AuditStatus `json:"status"`
	Message    string            `json:"message"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// UserActivity is a per user count used by the stats summary
type UserActivity struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Count    int    `json:"count"`
}

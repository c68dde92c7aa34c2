package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/kewsys/registry/internal/domain/auditlog"
	ierr "github.com/kewsys/registry/internal/errors"
	"github.com/kewsys/registry/internal/logger"
	"github.com/kewsys/registry/internal/postgres"
	"github.com/kewsys/registry/internal/types"
	"github.com/lib/pq"
)

// auditRow mirrors audit_logs, snapshots are stored as jsonb
type auditRow struct {
	ID         string         `db:"id"`
	UserID     sql.NullString `db:"user_id"`
	Username   string         `db:"username"`
	Action     string         `db:"action"`
	Module     string         `db:"module"`
	RecordID   string         `db:"record_id"`
	RecordType string         `db:"record_type"`
	OldValue   []byte         `db:"old_value"`
	NewValue   []byte         `db:"new_value"`
	IPAddress  string         `db:"ip_address"`
	UserAgent  string         `db:"user_agent"`
	Status     string         `db:"status"`
	Message    string         `db:"message"`
	CreatedAt  time.Time      `db:"created_at"`
}

const auditColumns = `id, user_id, username, action, module, record_id, record_type, old_value,
	new_value, ip_address, user_agent, status, message, created_at`

type auditLogRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewAuditLogRepository(db *postgres.DB, logger *logger.Logger) auditlog.Repository {
	return &auditLogRepository{db: db, logger: logger}
}

func (r *auditLogRepository) Create(ctx context.Context, l *auditlog.AuditLog) error {
	oldValue, err := marshalSnapshot(l.OldValue)
	if err != nil {
		return err
	}
	newValue, err := marshalSnapshot(l.NewValue)
	if err != nil {
		return err
	}

	var userID any
	if types.IsValidUUID(l.UserID) {
		userID = l.UserID
	}

	query := `INSERT INTO audit_logs (` + auditColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err = r.db.GetQuerier(ctx).ExecContext(ctx, query,
		l.ID, userID, l.Username, l.Action, l.Module, l.RecordID, l.RecordType,
		oldValue, newValue, l.IPAddress, l.UserAgent, l.Status, l.Message, l.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return ierr.WithError(err).
				WithHint("Audit entry already recorded").
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to record audit entry").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *auditLogRepository) Get(ctx context.Context, id string) (*auditlog.AuditLog, error) {
	if !types.IsValidUUID(id) {
		return nil, auditNotFound(id)
	}
	var row auditRow
	err := r.db.GetQuerier(ctx).GetContext(ctx, &row, `SELECT `+auditColumns+` FROM audit_logs WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auditNotFound(id)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to read audit log").
			Mark(ierr.ErrDatabase)
	}
	return row.toDomain(), nil
}

func (r *auditLogRepository) List(ctx context.Context, filter *types.AuditLogFilter) ([]*auditlog.AuditLog, error) {
	where, args := auditWhere(filter)
	query := `SELECT ` + auditColumns + ` FROM audit_logs WHERE ` + where + ` ORDER BY created_at DESC, id DESC`
	if filter != nil && filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	var rows []auditRow
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list audit logs").
			Mark(ierr.ErrDatabase)
	}

	out := make([]*auditlog.AuditLog, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (r *auditLogRepository) Count(ctx context.Context, filter *types.AuditLogFilter) (int, error) {
	where, args := auditWhere(filter)
	var count int
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &count, `SELECT COUNT(*) FROM audit_logs WHERE `+where, args...); err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count audit logs").
			Mark(ierr.ErrDatabase)
	}
	return count, nil
}

func (r *auditLogRepository) CountBy(ctx context.Context, field string, filter *types.AuditLogFilter) (map[string]int, error) {
	var col string
	switch field {
	case "action":
		col = "action"
	case "module":
		col = "module"
	default:
		return nil, ierr.NewErrorf("cannot group audit logs by %q", field).Mark(ierr.ErrSystem)
	}

	where, args := auditWhere(filter)
	query := fmt.Sprintf("SELECT %s AS key, COUNT(*) AS count FROM audit_logs WHERE %s GROUP BY %s", col, where, col)

	var rows []struct {
		Key   string `db:"key"`
		Count int    `db:"count"`
	}
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to aggregate audit logs").
			Mark(ierr.ErrDatabase)
	}

	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Count
	}
	return out, nil
}

func (r *auditLogRepository) TopUsers(ctx context.Context, limit int) ([]auditlog.UserActivity, error) {
	query := `
	SELECT user_id::text AS user_id, MAX(username) AS username, COUNT(*) AS count
	FROM audit_logs
	WHERE user_id IS NOT NULL
	GROUP BY user_id
	ORDER BY count DESC, user_id
	LIMIT $1`

	var rows []struct {
		UserID   string `db:"user_id"`
		Username string `db:"username"`
		Count    int    `db:"count"`
	}
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to aggregate audit logs").
			Mark(ierr.ErrDatabase)
	}

	out := make([]auditlog.UserActivity, 0, len(rows))
	for _, row := range rows {
		out = append(out, auditlog.UserActivity{UserID: row.UserID, Username: row.Username, Count: row.Count})
	}
	return out, nil
}

func auditWhere(filter *types.AuditLogFilter) (string, []any) {
	conds := []string{"TRUE"}
	var args []any
	if filter == nil {
		return conds[0], args
	}
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.Action != "" {
		add("action = $%d", filter.Action)
	}
	if filter.Module != "" {
		add("module = $%d", filter.Module)
	}
	if types.IsValidUUID(filter.UserID) {
		add("user_id = $%d", filter.UserID)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.StartDate != nil {
		add("created_at >= $%d", *filter.StartDate)
	}
	if filter.EndDate != nil {
		add("created_at <= $%d", *filter.EndDate)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+likeEscaper.Replace(s)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(`(username ILIKE $%d ESCAPE '\' OR action ILIKE $%d ESCAPE '\' OR module ILIKE $%d ESCAPE '\' OR message ILIKE $%d ESCAPE '\')`, n, n, n, n))
	}
	return strings.Join(conds, " AND "), args
}

func (row *auditRow) toDomain() *auditlog.AuditLog {
	l := &auditlog.AuditLog{
		ID:         row.ID,
		UserID:     row.UserID.String,
		Username:   row.Username,
		Action:     types.AuditAction(row.Action),
		Module:     row.Module,
		RecordID:   row.RecordID,
		RecordType: row.RecordType,
		IPAddress:  row.IPAddress,
		UserAgent:  row.UserAgent,
		Status:     types.AuditStatus(row.Status),
		Message:    row.Message,
		CreatedAt:  row.CreatedAt.UTC(),
	}
	if len(row.OldValue) > 0 {
		_ = jsoniter.Unmarshal(row.OldValue, &l.OldValue)
	}
	if len(row.NewValue) > 0 {
		_ = jsoniter.Unmarshal(row.NewValue, &l.NewValue)
	}
	return l
}

func marshalSnapshot(v map[string]any) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(v)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to encode audit snapshot").
			Mark(ierr.ErrSystem)
	}
	return string(b), nil
}

func auditNotFound(id string) error {
	return ierr.NewErrorf("audit log %s not found", id).
		WithHint("Audit log not found").
		Mark(ierr.ErrNotFound)
}

package service

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/kewsys/registry/internal/api/dto"
	"github.com/kewsys/registry/internal/domain/auditlog"
	ierr "github.com/kewsys/registry/internal/errors"
	"github.com/kewsys/registry/internal/types"
	"github.com/sourcegraph/conc/pool"
)

const (
	topUsersLimit       = 10
	defaultActivityRows = 50
	recentWindow        = 24 * time.Hour
)

type AuditLogService interface {
	ListAuditLogs(ctx context.Context, params url.Values) (*dto.ListAuditLogsResponse, error)
	GetAuditLog(ctx context.Context, id string) (*auditlog.AuditLog, error)
	GetStats(ctx context.Context) (*dto.AuditLogStatsResponse, error)
	// GetUserActivity returns the latest entries of one user, newest first
	GetUserActivity(ctx context.Context, userID string, limit int) ([]*auditlog.AuditLog, error)
}

type auditLogService struct {
	ServiceParams
}

func NewAuditLogService(params ServiceParams) AuditLogService {
	return &auditLogService{ServiceParams: params}
}

func (s *auditLogService) ListAuditLogs(ctx context.Context, params url.Values) (*dto.ListAuditLogsResponse, error) {
	page := types.ParsePageRequest(params.Get("page"), params.Get("limit"), types.AuditDefaultLimit, types.AuditMaxLimit)
	filter := &types.AuditLogFilter{
		Action: types.AuditAction(params.Get("action")),
		Module: params.Get("module"),
		UserID: params.Get("userId"),
		Status: types.AuditStatus(params.Get("status")),
		Search: params.Get("search"),
		Offset: page.Offset(),
		Limit:  page.Limit,
	}

	var err error
	if filter.StartDate, err = parseBound(params.Get("startDate"), "startDate", false); err != nil {
		return nil, err
	}
	if filter.EndDate, err = parseBound(params.Get("endDate"), "endDate", true); err != nil {
		return nil, err
	}

	total, err := s.AuditLogRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	logs, err := s.AuditLogRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &dto.ListAuditLogsResponse{
		Logs:       logs,
		Pagination: types.NewPaginationResponse(page, total),
	}, nil
}

func (s *auditLogService) GetAuditLog(ctx context.Context, id string) (*auditlog.AuditLog, error) {
	return s.AuditLogRepo.Get(ctx, id)
}

func (s *auditLogService) GetStats(ctx context.Context) (*dto.AuditLogStatsResponse, error) {
	resp := &dto.AuditLogStatsResponse{}
	since := time.Now().UTC().Add(-recentWindow)

	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		var err error
		resp.TotalLogs, err = s.AuditLogRepo.Count(ctx, &types.AuditLogFilter{})
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		resp.RecentActivity, err = s.AuditLogRepo.Count(ctx, &types.AuditLogFilter{StartDate: &since})
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		resp.ByAction, err = s.AuditLogRepo.CountBy(ctx, "action", &types.AuditLogFilter{})
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		resp.ByModule, err = s.AuditLogRepo.CountBy(ctx, "module", &types.AuditLogFilter{})
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		resp.TopUsers, err = s.AuditLogRepo.TopUsers(ctx, topUsersLimit)
		return err
	})

	if err := p.Wait(); err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *auditLogService) GetUserActivity(ctx context.Context, userID string, limit int) ([]*auditlog.AuditLog, error) {
	if !types.IsValidUUID(userID) {
		return nil, ierr.NewErrorf("invalid user id %s", userID).
			WithHint("Invalid user id").
			Mark(ierr.ErrValidation)
	}
	if limit <= 0 {
		limit = defaultActivityRows
	}
	if limit > types.AuditMaxLimit {
		limit = types.AuditMaxLimit
	}
	return s.AuditLogRepo.List(ctx, &types.AuditLogFilter{UserID: userID, Limit: limit})
}

// ParseLimit reads a positive row limit, zero when absent or malformed
func ParseLimit(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// parseBound reads a date or timestamp bound. A date only upper bound covers the whole day.
func parseBound(raw, param string, upper bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := types.ParseTime(raw)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("%s must be a valid date", param).
			WithReportableDetails(map[string]any{
				"violations": []map[string]string{{"field": param, "message": param + " must be a valid date"}},
			}).
			Mark(ierr.ErrValidation)
	}
	if upper && types.IsDateOnly(raw) {
		t = types.EndOfDay(t)
	}
	return &t, nil
}

package testutil

import (
	"context"
	"sort"
	"strings"

	"github.com/kewsys/registry/internal/domain/auditlog"
	ierr "github.com/kewsys/registry/internal/errors"
	"github.com/kewsys/registry/internal/types"
)

// InMemoryAuditLogStore implements auditlog.Repository
type InMemoryAuditLogStore struct {
	*InMemoryStore[*auditlog.AuditLog]
}

func NewInMemoryAuditLogStore() *InMemoryAuditLogStore {
	return &InMemoryAuditLogStore{
		InMemoryStore: NewInMemoryStore[*auditlog.AuditLog](),
	}
}

func (s *InMemoryAuditLogStore) Create(ctx context.Context, l *auditlog.AuditLog) error {
	if err := s.InMemoryStore.Create(ctx, l.ID, l); err != nil {
		return ierr.WithError(err).
			WithHint("Audit entry already recorded").
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (s *InMemoryAuditLogStore) Get(ctx context.Context, id string) (*auditlog.AuditLog, error) {
	l, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewErrorf("audit log %s not found", id).
			WithHint("Audit log not found").
			Mark(ierr.ErrNotFound)
	}
	return l, nil
}

func (s *InMemoryAuditLogStore) List(ctx context.Context, filter *types.AuditLogFilter) ([]*auditlog.AuditLog, error) {
	if filter == nil {
		filter = &types.AuditLogFilter{}
	}
	return s.InMemoryStore.List(ctx, auditFilterFn(filter), func(a, b *auditlog.AuditLog) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	}, filter.Offset, filter.Limit)
}

func (s *InMemoryAuditLogStore) Count(ctx context.Context, filter *types.AuditLogFilter) (int, error) {
	if filter == nil {
		filter = &types.AuditLogFilter{}
	}
	return s.InMemoryStore.Count(ctx, auditFilterFn(filter))
}

func (s *InMemoryAuditLogStore) CountBy(ctx context.Context, field string, filter *types.AuditLogFilter) (map[string]int, error) {
	if filter == nil {
		filter = &types.AuditLogFilter{}
	}
	match := auditFilterFn(filter)
	out := make(map[string]int)
	for _, l := range s.all() {
		if !match(ctx, l) {
			continue
		}
		switch field {
		case "action":
			out[string(l.Action)]++
		case "module":
			out[l.Module]++
		default:
			return nil, ierr.NewErrorf("cannot group audit logs by %s", field).
				Mark(ierr.ErrSystem)
		}
	}
	return out, nil
}

func (s *InMemoryAuditLogStore) TopUsers(ctx context.Context, limit int) ([]auditlog.UserActivity, error) {
	byUser := make(map[string]*auditlog.UserActivity)
	for _, l := range s.all() {
		if l.UserID == "" {
			continue
		}
		a, ok := byUser[l.UserID]
		if !ok {
			a = &auditlog.UserActivity{UserID: l.UserID}
			byUser[l.UserID] = a
		}
		if l.Username > a.Username {
			a.Username = l.Username
		}
		a.Count++
	}

	out := make([]auditlog.UserActivity, 0, len(byUser))
	for _, a := range byUser {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].UserID < out[j].UserID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func auditFilterFn(filter *types.AuditLogFilter) FilterFunc[*auditlog.AuditLog] {
	return func(_ context.Context, l *auditlog.AuditLog) bool {
		if filter.Action != "" && l.Action != filter.Action {
			return false
		}
		if filter.Module != "" && l.Module != filter.Module {
			return false
		}
		if types.IsValidUUID(filter.UserID) && l.UserID != filter.UserID {
			return false
		}
		if filter.Status != "" && l.Status != filter.Status {
			return false
		}
		if filter.StartDate != nil && l.CreatedAt.Before(*filter.StartDate) {
			return false
		}
		if filter.EndDate != nil && l.CreatedAt.After(*filter.EndDate) {
			return false
		}
		if q := strings.ToLower(strings.TrimSpace(filter.Search)); q != "" {
			return strings.Contains(strings.ToLower(l.Username), q) ||
				strings.Contains(strings.ToLower(string(l.Action)), q) ||
				strings.Contains(strings.ToLower(l.Module), q) ||
				strings.Contains(strings.ToLower(l.Message), q)
		}
		return true
	}
}

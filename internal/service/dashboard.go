package service

import (
	"context"
	"sync"

	"github.com/kewsys/registry/internal/api/dto"
	ierr "github.com/kewsys/registry/internal/errors"
	"github.com/kewsys/registry/internal/schema"
	"github.com/kewsys/registry/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"
)

type DashboardService interface {
	GetDashboard(ctx context.Context) (*dto.DashboardResponse, error)
}

type dashboardService struct {
	ServiceParams
	records RecordServices
}

func NewDashboardService(params ServiceParams, records RecordServices) DashboardService {
	return &dashboardService{ServiceParams: params, records: records}
}

// GetDashboard reads the cached per entity summaries and the user counts in parallel
func (s *dashboardService) GetDashboard(ctx context.Context) (*dto.DashboardResponse, error) {
	resp := &dto.DashboardResponse{
		Users: dto.UserSummary{ByRole: make(map[string]int, len(types.AllRoles))},
	}
	var mu sync.Mutex

	p := pool.New().WithContext(ctx).WithCancelOnError().WithMaxGoroutines(statsMaxGoroutines)
	p.Go(func(ctx context.Context) error {
		stats, err := s.summary(ctx, schema.EntityAssets)
		resp.Assets = dto.AssetSummary{
			Total:      countOf(stats, "total"),
			Active:     countOf(stats, "active"),
			TotalValue: sumOf(stats, "totalValue"),
		}
		return err
	})
	p.Go(func(ctx context.Context) error {
		stats, err := s.summary(ctx, schema.EntityInventory)
		resp.Inventory = dto.InventorySummary{
			Total:      countOf(stats, "total"),
			LowStock:   countOf(stats, "lowStockItems"),
			TotalValue: sumOf(stats, "totalValue"),
		}
		return err
	})
	p.Go(func(ctx context.Context) error {
		stats, err := s.summary(ctx, schema.EntityLivestock)
		resp.Livestock = dto.LivestockSummary{
			Total:      countOf(stats, "total"),
			Healthy:    countOf(stats, "healthy"),
			TotalValue: sumOf(stats, "totalValue"),
		}
		return err
	})
	p.Go(func(ctx context.Context) error {
		n, err := s.UserRepo.Count(ctx, &types.UserFilter{})
		resp.Users.Total = n
		return err
	})
	p.Go(func(ctx context.Context) error {
		n, err := s.UserRepo.Count(ctx, &types.UserFilter{IsActive: lo.ToPtr(true)})
		resp.Users.Active = n
		return err
	})
	for _, role := range types.AllRoles {
		p.Go(func(ctx context.Context) error {
			n, err := s.UserRepo.Count(ctx, &types.UserFilter{Role: lo.ToPtr(role)})
			if n > 0 {
				mu.Lock()
				resp.Users.ByRole[role.String()] = n
				mu.Unlock()
			}
			return err
		})
	}

	if err := p.Wait(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to compute dashboard statistics").
			Mark(ierr.ErrDatabase)
	}
	return resp, nil
}

func (s *dashboardService) summary(ctx context.Context, entity string) (map[string]any, error) {
	svc, ok := s.records.For(entity)
	if !ok {
		return nil, ierr.NewErrorf("entity %s is not registered", entity).
			Mark(ierr.ErrSystem)
	}
	return svc.Stats(ctx)
}

func countOf(stats map[string]any, key string) int {
	n, _ := stats[key].(int)
	return n
}

func sumOf(stats map[string]any, key string) decimal.Decimal {
	d, ok := stats[key].(decimal.Decimal)
	if !ok {
		return decimal.Zero
	}
	return d
}

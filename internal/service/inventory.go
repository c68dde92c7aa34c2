package service

import (
	"context"
	"fmt"

	"github.com/kewsys/registry/internal/api/dto"
	"github.com/kewsys/registry/internal/domain/record"
	ierr "github.com/kewsys/registry/internal/errors"
	"github.com/kewsys/registry/internal/schema"
	"github.com/kewsys/registry/internal/types"
)

type InventoryService interface {
	// AdjustStock moves currentStock by a signed amount and re-derives the stock level
	AdjustStock(ctx context.Context, id string, req *dto.AdjustStockRequest) (*record.Record, error)
}

type inventoryService struct {
	*recordService
}

func NewInventoryService(params ServiceParams) (InventoryService, error) {
	e, ok := params.Registry.Get(schema.EntityInventory)
	if !ok {
		return nil, ierr.NewError("inventory entity is not registered").
			Mark(ierr.ErrSystem)
	}
	return &inventoryService{recordService: newRecordService(params, e)}, nil
}

func (s *inventoryService) AdjustStock(ctx context.Context, id string, req *dto.AdjustStockRequest) (*record.Record, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	current, err := s.getLive(ctx, id)
	if err != nil {
		return nil, err
	}

	stock, _ := current.Values["currentStock"].(int64)
	newStock := stock + req.Adjustment
	if newStock < 0 {
		return nil, schema.NewValidationError([]schema.Violation{{
			Field:   "adjustment",
			Message: fmt.Sprintf("adjustment of %d would leave stock at %d", req.Adjustment, newStock),
		}})
	}

	next := current.Clone()
	next.Values["currentStock"] = newStock
	if req.Adjustment > 0 {
		next.Values["lastRestockDate"] = types.NewDate(s.now())
	}
	if err := s.transform(next.Values); err != nil {
		return nil, err
	}

	if err := s.save(ctx, next); err != nil {
		return nil, err
	}

	s.Logger.Infow("stock adjusted",
		"id", id,
		"adjustment", req.Adjustment,
		"stock", newStock,
		"user_id", types.GetUserID(ctx),
	)
	s.afterWrite(ctx, types.AuditActionAdjustStock, current, next, s.entity.EventName("updated"), req.Reason)
	return next, nil
}

package service

import (
	"net/url"
	"testing"

	"github.com/kewsys/registry/internal/api/dto"
	"github.com/kewsys/registry/internal/domain/record"
	ierr "github.com/kewsys/registry/internal/errors"
	"github.com/kewsys/registry/internal/schema"
	"github.com/kewsys/registry/internal/testutil"
	"github.com/kewsys/registry/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type InventoryServiceSuite struct {
	testutil.BaseServiceTestSuite
	items     RecordService
	inventory InventoryService
}

func TestInventoryService(t *testing.T) {
	suite.Run(t, new(InventoryServiceSuite))
}

func (s *InventoryServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := testParams(&s.BaseServiceTestSuite)
	s.items = NewRecordService(params, s.Entity(schema.EntityInventory))

	var err error
	s.inventory, err = NewInventoryService(params)
	s.Require().NoError(err)
}

func (s *InventoryServiceSuite) createItem(code string, stock, minimum int) *record.Record {
	rec, err := s.items.Create(s.GetContext(), map[string]any{
		"itemCode":     code,
		"itemName":     "Syringe 5ml",
		"category":     "Veterinary Supplies",
		"unit":         "box",
		"location":     "Store A",
		"currentStock": float64(stock),
		"minimumStock": float64(minimum),
		"unitPrice":    "12.50",
	})
	s.Require().NoError(err)
	return rec
}

func (s *InventoryServiceSuite) TestDerivedFields() {
	tests := []struct {
		name   string
		stock  int
		status string
		total  string
	}{
		{name: "healthy", stock: 50, status: schema.InventoryStatusActive, total: "625"},
		{name: "at minimum", stock: 10, status: schema.InventoryStatusLowStock, total: "125"},
		{name: "empty", stock: 0, status: schema.InventoryStatusOutOfStock, total: "0"},
	}

	for i, tt := range tests {
		s.Run(tt.name, func() {
			rec := s.createItem("INV-00"+string(rune('1'+i)), tt.stock, 10)
			s.Equal(tt.status, rec.String("status"))
			s.True(decimal.RequireFromString(tt.total).Equal(rec.Values["totalValue"].(decimal.Decimal)))
		})
	}

	s.Run("client cannot set the total", func() {
		rec := s.createItem("INV-010", 4, 1)
		updated, err := s.items.Update(s.GetContext(), rec.ID, map[string]any{"totalValue": float64(1), "unitPrice": float64(2)}, nil)
		s.Require().NoError(err)
		s.True(decimal.NewFromInt(8).Equal(updated.Values["totalValue"].(decimal.Decimal)))
	})
}

func (s *InventoryServiceSuite) TestLowStockFilter() {
	x := s.createItem("INV-X", 5, 10)
	y := s.createItem("INV-Y", 50, 10)

	list, err := s.items.List(s.GetContext(), url.Values{"lowStock": {"true"}})
	s.Require().NoError(err)

	ids := make([]string, 0, len(list.Items))
	for _, r := range list.Items {
		ids = append(ids, r.ID)
	}
	s.Contains(ids, x.ID)
	s.NotContains(ids, y.ID)

	all, err := s.items.List(s.GetContext(), url.Values{"lowStock": {"false"}})
	s.Require().NoError(err)
	s.Len(all.Items, 2)
}

func (s *InventoryServiceSuite) TestAdjustStock() {
	item := s.createItem("INV-100", 20, 10)

	s.Run("restock stamps the restock date", func() {
		rec, err := s.inventory.AdjustStock(s.GetContext(), item.ID, &dto.AdjustStockRequest{Adjustment: 5, Reason: "delivery"})
		s.Require().NoError(err)
		s.Equal(int64(25), rec.Values["currentStock"])
		s.Equal(types.NewDate(s.GetNow()), rec.Values["lastRestockDate"])
		s.Equal(schema.InventoryStatusActive, rec.String("status"))

		logs := s.AuditLogs()
		last := logs[len(logs)-1]
		s.Equal(types.AuditActionAdjustStock, last.Action)
		s.Equal("delivery", last.Message)
	})

	s.Run("drawing below the minimum raises one alert", func() {
		s.GetPubSub().ClearMessages()
		_, err := s.inventory.AdjustStock(s.GetContext(), item.ID, &dto.AdjustStockRequest{Adjustment: -20, Reason: "issued"})
		s.Require().NoError(err)
		s.Equal([]string{"inventory:updated", schema.EventInventoryLowStock}, s.Events())

		s.GetPubSub().ClearMessages()
		rec, err := s.inventory.AdjustStock(s.GetContext(), item.ID, &dto.AdjustStockRequest{Adjustment: -5, Reason: "issued"})
		s.Require().NoError(err)
		s.Equal(schema.InventoryStatusOutOfStock, rec.String("status"))
		s.Equal([]string{"inventory:updated"}, s.Events())
	})

	s.Run("cannot go negative", func() {
		_, err := s.inventory.AdjustStock(s.GetContext(), item.ID, &dto.AdjustStockRequest{Adjustment: -1, Reason: "issued"})
		s.True(ierr.IsValidation(err))
	})

	s.Run("zero adjustment is refused", func() {
		_, err := s.inventory.AdjustStock(s.GetContext(), item.ID, &dto.AdjustStockRequest{Adjustment: 0, Reason: "noop"})
		s.True(ierr.IsValidation(err))
	})

	s.Run("unknown item", func() {
		_, err := s.inventory.AdjustStock(s.GetContext(), types.GenerateUUID(), &dto.AdjustStockRequest{Adjustment: 1, Reason: "x"})
		s.True(ierr.IsNotFound(err))
	})
}

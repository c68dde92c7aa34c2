package service

import (
	"testing"

	"github.com/kewsys/registry/internal/domain/record"
	ierr "github.com/kewsys/registry/internal/errors"
	"github.com/kewsys/registry/internal/schema"
	"github.com/kewsys/registry/internal/testutil"
	"github.com/kewsys/registry/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type StatsSuite struct {
	testutil.BaseServiceTestSuite
	assets RecordService
}

func TestStats(t *testing.T) {
	suite.Run(t, new(StatsSuite))
}

func (s *StatsSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.assets = NewRecordService(testParams(&s.BaseServiceTestSuite), s.Entity(schema.EntityAssets))
}

func (s *StatsSuite) create(code, category, status string, price float64) string {
	payload := assetPayload(code)
	payload["category"] = category
	payload["status"] = status
	payload["purchasePrice"] = price
	rec, err := s.assets.Create(s.GetContext(), payload)
	s.Require().NoError(err)
	return rec.ID
}

func (s *StatsSuite) TestSummary() {
	s.create("S-1", "Furniture", "Active", 100)
	s.create("S-2", "Furniture", "Disposed", 50.5)
	s.create("S-3", "Vehicle", "Active", 1000)
	deleted := s.create("S-4", "Vehicle", "Active", 9999)
	s.Require().NoError(s.assets.Delete(s.GetContext(), deleted))

	stats, err := s.assets.Stats(s.GetContext())
	s.Require().NoError(err)

	s.Equal(3, stats["total"])
	s.Equal(2, stats["active"])
	s.Equal(1, stats["disposed"])
	s.Equal(0, stats["maintenance"])
	s.Equal(map[string]int{"Furniture": 2, "Vehicle": 1}, stats["byCategory"])
	s.Equal(map[string]int{"Active": 2, "Disposed": 1}, stats["byStatus"])
	s.True(decimal.RequireFromString("1150.5").Equal(stats["totalValue"].(decimal.Decimal)))
}

func (s *StatsSuite) TestSummaryCachedUntilWrite() {
	s.create("C-1", "Furniture", "Active", 10)

	first, err := s.assets.Stats(s.GetContext())
	s.Require().NoError(err)
	s.Equal(1, first["total"])

	// a row written behind the service stays invisible while cached
	s.GetStores().Records.Store(s.Entity(schema.EntityAssets)).Seed(record.New(types.GenerateUUID(), map[string]any{
		"category":      "Vehicle",
		"status":        "Active",
		"purchasePrice": decimal.NewFromInt(1),
	}, s.GetNow()))
	cached, err := s.assets.Stats(s.GetContext())
	s.Require().NoError(err)
	s.Equal(1, cached["total"])

	id := s.create("C-2", "Furniture", "Active", 10)
	second, err := s.assets.Stats(s.GetContext())
	s.Require().NoError(err)
	s.Equal(3, second["total"])

	s.Require().NoError(s.assets.Delete(s.GetContext(), id))
	third, err := s.assets.Stats(s.GetContext())
	s.Require().NoError(err)
	s.Equal(2, third["total"])
}

func (s *StatsSuite) TestBreakdown() {
	s.create("B-1", "Furniture", "Active", 100)
	s.create("B-2", "Furniture", "Active", 300)
	s.create("B-3", "Vehicle", "Active", 250)
	s.create("B-4", "Machinery", "Active", 250)

	rows, err := s.assets.Breakdown(s.GetContext(), "category", "purchasePrice")
	s.Require().NoError(err)
	s.Require().Len(rows, 3)

	s.Equal("Furniture", rows[0].Group)
	s.Equal(2, rows[0].Count)
	s.Equal("400", rows[0].Total)
	s.Equal("Machinery", rows[1].Group, "ties sort by group")
	s.Equal("Vehicle", rows[2].Group)

	_, err = s.assets.Breakdown(s.GetContext(), "colour", "purchasePrice")
	s.True(ierr.IsValidation(err))
}

func (s *StatsSuite) TestSummaryComputedBeforeWriteIsNotCached() {
	s.create("R-1", "Furniture", "Active", 10)
	svc := s.assets.(*recordService)

	gen := svc.statsGeneration(s.GetContext())
	s.create("R-2", "Furniture", "Active", 10)
	svc.cacheStats(s.GetContext(), svc.statsKey("summary"), gen, map[string]any{"total": 1})

	stats, err := s.assets.Stats(s.GetContext())
	s.Require().NoError(err)
	s.Equal(2, stats["total"])

	s.Run("an untouched generation is cached", func() {
		gen := svc.statsGeneration(s.GetContext())
		svc.cacheStats(s.GetContext(), svc.statsKey("summary"), gen, map[string]any{"total": 42})
		stats, err := s.assets.Stats(s.GetContext())
		s.Require().NoError(err)
		s.Equal(42, stats["total"])
	})
}

func (s *StatsSuite) TestStatsKey() {
	svc := s.assets.(*recordService)
	s.Equal("stats:v1:assets:summary", svc.statsKey("summary"))
}

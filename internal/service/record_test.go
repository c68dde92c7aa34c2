package service

import (
	"net/url"
	"testing"

	"github.com/kewsys/registry/internal/domain/record"
	ierr "github.com/kewsys/registry/internal/errors"
	"github.com/kewsys/registry/internal/schema"
	"github.com/kewsys/registry/internal/testutil"
	"github.com/kewsys/registry/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type RecordServiceSuite struct {
	testutil.BaseServiceTestSuite
	assets    RecordService
	movements RecordService
	livestock RecordService
}

func TestRecordService(t *testing.T) {
	suite.Run(t, new(RecordServiceSuite))
}

func (s *RecordServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := testParams(&s.BaseServiceTestSuite)
	s.assets = NewRecordService(params, s.Entity(schema.EntityAssets))
	s.movements = NewRecordService(params, s.Entity(schema.EntityLivestockMovements))
	s.livestock = NewRecordService(params, s.Entity(schema.EntityLivestock))
	seedUser(&s.BaseServiceTestSuite, testutil.AdminID, "admin", types.RoleAdmin)
	seedUser(&s.BaseServiceTestSuite, testutil.StaffID, "staff", types.RoleStaff)
}

func assetPayload(code string) map[string]any {
	return map[string]any{
		"assetCode":     code,
		"assetName":     "Test Laptop",
		"category":      "Computer & IT",
		"purchasePrice": float64(2000),
		"purchaseDate":  "2025-01-01",
		"location":      "HQ",
		"department":    "IT",
	}
}

func (s *RecordServiceSuite) createAsset(code string) *record.Record {
	rec, err := s.assets.Create(s.GetContext(), assetPayload(code))
	s.Require().NoError(err)
	return rec
}

func (s *RecordServiceSuite) TestCreate() {
	s.Run("stamps the owner and applies defaults", func() {
		rec, err := s.assets.Create(staffContext(), assetPayload("A2099-001"))
		s.Require().NoError(err)

		s.Equal(testutil.StaffID, rec.String("userId"))
		s.Equal("Active", rec.String("status"))
		s.Equal("Good", rec.String("condition"))
		s.Equal(int64(1), rec.Version)
		s.True(decimal.NewFromInt(2000).Equal(rec.Values["purchasePrice"].(decimal.Decimal)))
		s.Equal("2025-01-01", rec.Values["purchaseDate"].(types.Date).String())
	})

	s.Run("ignores a client supplied owner", func() {
		payload := assetPayload("A2099-002")
		payload["userId"] = testutil.ManagerID
		payload["id"] = "not-an-id"

		rec, err := s.assets.Create(s.GetContext(), payload)
		s.Require().NoError(err)
		s.Equal(testutil.AdminID, rec.String("userId"))
		s.NotEqual("not-an-id", rec.ID)
	})

	s.Run("reports every violation and writes nothing", func() {
		before, err := s.GetStores().Records.Store(s.Entity(schema.EntityAssets)).Count(s.GetContext(), &record.Filter{})
		s.Require().NoError(err)

		_, err = s.assets.Create(s.GetContext(), map[string]any{
			"assetCode":     "A2099-003",
			"category":      "Spaceship",
			"purchasePrice": float64(-1),
		})
		s.Require().Error(err)
		s.True(ierr.IsValidation(err))

		violations, ok := ierr.SafeDetails(err)["violations"].([]any)
		s.Require().True(ok)
		fields := make([]string, 0, len(violations))
		for _, v := range violations {
			fields = append(fields, v.(map[string]any)["field"].(string))
		}
		s.ElementsMatch([]string{"assetName", "category", "purchaseDate", "purchasePrice", "location", "department"}, fields)

		after, err := s.GetStores().Records.Store(s.Entity(schema.EntityAssets)).Count(s.GetContext(), &record.Filter{})
		s.Require().NoError(err)
		s.Equal(before, after)
	})

	s.Run("rejects a duplicate unique code", func() {
		s.createAsset("A2099-004")
		_, err := s.assets.Create(s.GetContext(), assetPayload("A2099-004"))
		s.Require().Error(err)
		s.True(ierr.IsAlreadyExists(err))
	})
}

func (s *RecordServiceSuite) TestCreateAudited() {
	rec := s.createAsset("A2099-010")

	logs := s.AuditLogs()
	s.Require().Len(logs, 1)
	s.Equal(types.AuditActionCreate, logs[0].Action)
	s.Equal("Asset", logs[0].Module)
	s.Equal(rec.ID, logs[0].RecordID)
	s.Equal(testutil.AdminID, logs[0].UserID)
	s.Equal("127.0.0.1", logs[0].IPAddress)
	s.Equal("testutil", logs[0].UserAgent)
	s.Nil(logs[0].OldValue)
	s.NotNil(logs[0].NewValue)

	s.Equal([]string{"asset:created"}, s.Events())
}

func (s *RecordServiceSuite) TestUpdateKeepsOwner() {
	rec, err := s.assets.Create(staffContext(), assetPayload("A2099-020"))
	s.Require().NoError(err)

	tests := []struct {
		name    string
		payload map[string]any
	}{
		{name: "owner alone is dropped", payload: map[string]any{"userId": "someone-else", "location": "Branch"}},
		{name: "owner with other ids", payload: map[string]any{"userId": testutil.ManagerID, "id": "x", "createdAt": "2000-01-01", "assetName": "Renamed"}},
		{name: "explicit null owner", payload: map[string]any{"userId": nil, "notes": "moved"}},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			updated, err := s.assets.Update(s.GetContext(), rec.ID, tt.payload, nil)
			s.Require().NoError(err)
			s.Equal(testutil.StaffID, updated.String("userId"))
			s.Equal(rec.ID, updated.ID)
			s.Equal(rec.CreatedAt, updated.CreatedAt)

			stored, err := s.assets.Get(s.GetContext(), rec.ID, false)
			s.Require().NoError(err)
			s.Equal(testutil.StaffID, stored.String("userId"))
		})
	}
}

func (s *RecordServiceSuite) TestUpdate() {
	rec := s.createAsset("A2099-030")

	s.Run("applies a partial payload and records before and after", func() {
		s.GetPubSub().ClearMessages()
		updated, err := s.assets.Update(s.GetContext(), rec.ID, map[string]any{"location": "Branch"}, nil)
		s.Require().NoError(err)
		s.Equal("Branch", updated.String("location"))
		s.Equal("Test Laptop", updated.String("assetName"))
		s.Equal(rec.Version+1, updated.Version)

		logs := s.AuditLogs()
		s.Require().Len(logs, 1)
		s.Equal(types.AuditActionUpdate, logs[0].Action)
		s.Equal("HQ", logs[0].OldValue["location"])
		s.Equal("Branch", logs[0].NewValue["location"])
	})

	s.Run("rejects an empty payload", func() {
		_, err := s.assets.Update(s.GetContext(), rec.ID, map[string]any{"userId": "x"}, nil)
		s.True(ierr.IsValidation(err))
	})

	s.Run("rejects a stale If-Match version", func() {
		stale := int64(1)
		_, err := s.assets.Update(s.GetContext(), rec.ID, map[string]any{"location": "Elsewhere"}, &stale)
		s.True(ierr.IsVersionConflict(err))

		stored, err := s.assets.Get(s.GetContext(), rec.ID, false)
		s.Require().NoError(err)
		s.Equal("Branch", stored.String("location"))
	})

	s.Run("accepts the current If-Match version", func() {
		stored, err := s.assets.Get(s.GetContext(), rec.ID, false)
		s.Require().NoError(err)
		version := stored.Version

		_, err = s.assets.Update(s.GetContext(), rec.ID, map[string]any{"location": "Elsewhere"}, &version)
		s.NoError(err)
	})

	s.Run("fails for an unknown id", func() {
		_, err := s.assets.Update(s.GetContext(), types.GenerateUUID(), map[string]any{"location": "x"}, nil)
		s.True(ierr.IsNotFound(err))
	})

	s.Run("rejects taking another record's code", func() {
		other := s.createAsset("A2099-031")
		_, err := s.assets.Update(s.GetContext(), other.ID, map[string]any{"assetCode": "A2099-030"}, nil)
		s.True(ierr.IsAlreadyExists(err))
	})
}

func (s *RecordServiceSuite) TestSoftDelete() {
	rec := s.createAsset("A2099-040")
	kept := s.createAsset("A2099-041")

	s.Require().NoError(s.assets.Delete(s.GetContext(), rec.ID))

	s.Run("is excluded from the default list", func() {
		list, err := s.assets.List(s.GetContext(), url.Values{})
		s.Require().NoError(err)
		s.Require().Len(list.Items, 1)
		s.Equal(kept.ID, list.Items[0].ID)
		s.Equal(1, list.Pagination.Total)
	})

	s.Run("is not found by default", func() {
		_, err := s.assets.Get(s.GetContext(), rec.ID, false)
		s.True(ierr.IsNotFound(err))
	})

	s.Run("is returned with its marker to an admin", func() {
		got, err := s.assets.Get(s.GetContext(), rec.ID, true)
		s.Require().NoError(err)
		s.NotNil(got.DeletedAt)
	})

	s.Run("is hidden from a non admin asking for deleted rows", func() {
		_, err := s.assets.Get(staffContext(), rec.ID, true)
		s.True(ierr.IsNotFound(err))

		list, err := s.assets.List(staffContext(), url.Values{"includeDeleted": {"true"}})
		s.Require().NoError(err)
		s.Len(list.Items, 1)
	})

	s.Run("is listed for an admin asking for deleted rows", func() {
		list, err := s.assets.List(s.GetContext(), url.Values{"includeDeleted": {"true"}})
		s.Require().NoError(err)
		s.Len(list.Items, 2)
	})

	s.Run("cannot be deleted twice", func() {
		err := s.assets.Delete(s.GetContext(), rec.ID)
		s.True(ierr.IsNotFound(err))
	})

	s.Run("still holds its code", func() {
		_, err := s.assets.Create(s.GetContext(), assetPayload("A2099-040"))
		s.True(ierr.IsAlreadyExists(err))
	})
}

func (s *RecordServiceSuite) TestHardDelete() {
	mv, err := s.movements.Create(s.GetContext(), map[string]any{
		"livestockId": types.GenerateUUID(),
		"toLocation":  "Pen 4",
	})
	s.Require().NoError(err)

	s.Require().NoError(s.movements.Delete(s.GetContext(), mv.ID))

	_, err = s.movements.Get(s.GetContext(), mv.ID, true)
	s.True(ierr.IsNotFound(err))

	list, err := s.movements.List(s.GetContext(), url.Values{"includeDeleted": {"true"}})
	s.Require().NoError(err)
	s.Empty(list.Items)

	logs := s.AuditLogs()
	s.Equal(types.AuditActionDelete, logs[len(logs)-1].Action)
	s.Contains(s.Events(), "livestockMovement:deleted")
}

func (s *RecordServiceSuite) TestList() {
	for i, dept := range []string{"IT", "IT", "Finance", "IT", "Finance"} {
		payload := assetPayload("A2099-05" + string(rune('0'+i)))
		payload["department"] = dept
		if i%2 == 0 {
			payload["category"] = "Furniture"
		}
		_, err := s.assets.Create(s.GetContext(), payload)
		s.Require().NoError(err)
	}

	tests := []struct {
		name   string
		params url.Values
		want   int
		total  int
		pages  int
	}{
		{name: "no filters", params: url.Values{}, want: 5, total: 5, pages: 1},
		{name: "one filter", params: url.Values{"department": {"it"}}, want: 3, total: 3, pages: 1},
		{name: "two filters intersect", params: url.Values{"department": {"IT"}, "category": {"Furniture"}}, want: 1, total: 1, pages: 1},
		{name: "search", params: url.Values{"search": {"A2099-053"}}, want: 1, total: 1, pages: 1},
		{name: "paged", params: url.Values{"limit": {"2"}, "page": {"3"}}, want: 1, total: 5, pages: 3},
		{name: "past the end", params: url.Values{"limit": {"2"}, "page": {"9"}}, want: 0, total: 5, pages: 3},
		{name: "page far beyond int range", params: url.Values{"page": {"4611686018427387904"}}, want: 0, total: 5, pages: 1},
		{name: "unknown params ignored", params: url.Values{"colour": {"red"}}, want: 5, total: 5, pages: 1},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			list, err := s.assets.List(s.GetContext(), tt.params)
			s.Require().NoError(err)
			s.Len(list.Items, tt.want)
			s.Equal(tt.total, list.Pagination.Total)
			s.Equal(tt.pages, list.Pagination.Pages)
		})
	}

	s.Run("malformed filter is a validation error", func() {
		_, err := s.assets.List(s.GetContext(), url.Values{"purchaseDateFrom": {"yesterday"}})
		s.True(ierr.IsValidation(err))
	})
}

func (s *RecordServiceSuite) TestRelations() {
	mother, err := s.livestock.Create(s.GetContext(), map[string]any{
		"animalCode":      "LS-001",
		"species":         "Cattle",
		"gender":          "Female",
		"acquisitionDate": "2024-03-01",
		"acquisitionType": "Purchase",
		"location":        "Farm A",
	})
	s.Require().NoError(err)

	calf, err := s.livestock.Create(staffContext(), map[string]any{
		"animalCode":      "LS-002",
		"species":         "Cattle",
		"gender":          "Male",
		"acquisitionDate": "2025-03-01",
		"acquisitionType": "Birth",
		"location":        "Farm A",
		"motherId":        mother.ID,
		"fatherId":        types.GenerateUUID(),
	})
	s.Require().NoError(err)

	got, err := s.livestock.Get(s.GetContext(), calf.ID, false)
	s.Require().NoError(err)

	s.Require().Contains(got.Related, "mother")
	s.Equal("LS-001", got.Related["mother"].(map[string]any)["animalCode"])
	s.NotContains(got.Related, "father", "a dangling reference is left out")
	s.Require().Contains(got.Related, "user")
}

func (s *RecordServiceSuite) TestHealthAlert() {
	animal, err := s.livestock.Create(s.GetContext(), map[string]any{
		"animalCode":      "LS-010",
		"species":         "Goat",
		"gender":          "Female",
		"acquisitionDate": "2024-05-01",
		"acquisitionType": "Purchase",
		"location":        "Farm B",
	})
	s.Require().NoError(err)

	s.Run("falling sick raises the alert", func() {
		s.GetPubSub().ClearMessages()
		_, err := s.livestock.Update(s.GetContext(), animal.ID, map[string]any{"healthStatus": schema.HealthSick}, nil)
		s.Require().NoError(err)
		s.Equal([]string{"livestock:updated", schema.EventLivestockHealthAlert}, s.Events())
	})

	s.Run("staying sick does not repeat it", func() {
		s.GetPubSub().ClearMessages()
		_, err := s.livestock.Update(s.GetContext(), animal.ID, map[string]any{"pen": "P-2"}, nil)
		s.Require().NoError(err)
		s.Equal([]string{"livestock:updated"}, s.Events())
	})
}

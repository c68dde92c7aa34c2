package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	v1 "github.com/kewsys/registry/internal/api/v1"
	"github.com/kewsys/registry/internal/auth"
	"github.com/kewsys/registry/internal/config"
	"github.com/kewsys/registry/internal/domain/user"
	"github.com/kewsys/registry/internal/notify"
	"github.com/kewsys/registry/internal/pyroscope"
	"github.com/kewsys/registry/internal/rbac"
	"github.com/kewsys/registry/internal/report"
	"github.com/kewsys/registry/internal/sentry"
	"github.com/kewsys/registry/internal/service"
	"github.com/kewsys/registry/internal/testutil"
	"github.com/kewsys/registry/internal/types"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/suite"
)

const visitorID = "2f7b9c15-4e8d-4b3a-a1c6-8d5e0f7a9b04"

type RouterSuite struct {
	testutil.BaseServiceTestSuite
	router *gin.Engine
	tokens map[types.Role]string
}

func TestRouter(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupSuite() {
	s.BaseServiceTestSuite.SetupSuite()
	gin.SetMode(gin.TestMode)
}

func (s *RouterSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.router = s.newRouter(s.GetConfig())

	s.tokens = make(map[types.Role]string)
	for _, u := range []struct {
		id       string
		username string
		role     types.Role
	}{
		{testutil.AdminID, "admin", types.RoleAdmin},
		{testutil.ManagerID, "manager", types.RoleManager},
		{testutil.StaffID, "staff", types.RoleStaff},
		{visitorID, "visitor", types.RoleVisitor},
	} {
		s.tokens[u.role] = s.seedUser(u.id, u.username, u.role)
	}
}

func (s *RouterSuite) newRouter(cfg *config.Configuration) *gin.Engine {
	stores := s.GetStores()
	params := service.NewServiceParams(
		s.GetLogger(),
		cfg,
		s.GetDB(),
		s.GetRegistry(),
		s.GetCache(),
		stores.Records,
		stores.UserRepo,
		stores.AuditRepo,
		s.GetAuditSink(),
		s.GetNotifier(),
		auth.NewProvider(cfg),
		report.NewGenerator(),
		nil,
	)

	inventory, err := service.NewInventoryService(params)
	s.Require().NoError(err)
	rbacService, err := rbac.NewRBACService(cfg, s.GetRegistry())
	s.Require().NoError(err)

	authService := service.NewAuthService(params)
	recordServices := service.NewRecordServices(params)
	handlers := Handlers{
		Health:    v1.NewHealthHandler(nil, s.GetLogger()),
		Auth:      v1.NewAuthHandler(authService, s.GetLogger()),
		User:      v1.NewUserHandler(service.NewUserService(params), s.GetLogger()),
		AuditLog:  v1.NewAuditLogHandler(service.NewAuditLogService(params), s.GetLogger()),
		Inventory: v1.NewInventoryHandler(inventory, s.GetLogger()),
		Events:    v1.NewEventsHandler(notify.NewHub(s.GetLogger()), s.GetLogger()),
		Dashboard: v1.NewDashboardHandler(service.NewDashboardService(params, recordServices), s.GetLogger()),
		Records:   v1.NewRecordHandlers(recordServices, service.NewReportService(params), s.GetLogger()),
	}
	return NewRouter(handlers, RouterParams{
		Config:        cfg,
		Logger:        s.GetLogger(),
		Authenticator: authService,
		RBAC:          rbacService,
		Sentry:        sentry.NewSentryService(cfg, s.GetLogger()),
		Pyroscope:     pyroscope.NewPyroscopeService(cfg, s.GetLogger()),
	})
}

// seedUser stores an active user with password "secret123" and returns a bearer token for it
func (s *RouterSuite) seedUser(id, username string, role types.Role) string {
	hash, err := auth.HashPassword("secret123")
	s.Require().NoError(err)

	now := time.Now().UTC()
	s.Require().NoError(s.GetStores().UserRepo.Create(context.Background(), &user.User{
		ID:        id,
		Username:  username,
		Email:     username + "@kew.gov.my",
		Password:  hash,
		FullName:  username,
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}))

	token, err := auth.NewProvider(s.GetConfig()).GenerateToken(auth.Claims{UserID: id, Username: username, Role: role})
	s.Require().NoError(err)
	return token.Value
}

func (s *RouterSuite) do(router *gin.Engine, method, path string, role types.Role, body any, headers ...string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, err := jsoniter.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token, ok := s.tokens[role]; ok {
		req.Header.Set(types.HeaderAuthorization, "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func (s *RouterSuite) request(method, path string, role types.Role, body any, headers ...string) *httptest.ResponseRecorder {
	return s.do(s.router, method, path, role, body, headers...)
}

func (s *RouterSuite) decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	s.Require().NoError(jsoniter.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// errorCode returns error.code of a failure body
func (s *RouterSuite) errorCode(w *httptest.ResponseRecorder) string {
	body := s.decode(w)
	s.Equal(false, body["success"])
	detail, ok := body["error"].(map[string]any)
	s.Require().True(ok, w.Body.String())
	code, _ := detail["code"].(string)
	return code
}

func assetBody(code string) map[string]any {
	return map[string]any{
		"assetCode":     code,
		"assetName":     "Office Printer",
		"category":      "Equipment",
		"purchasePrice": "1500.50",
		"purchaseDate":  "2025-03-01",
		"location":      "Block B",
		"department":    "Finance",
	}
}

func (s *RouterSuite) createAsset(code string) map[string]any {
	w := s.request(http.MethodPost, "/api/v1/assets", types.RoleStaff, assetBody(code))
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	asset, ok := s.decode(w)["asset"].(map[string]any)
	s.Require().True(ok)
	return asset
}

func (s *RouterSuite) TestHealth() {
	w := s.request(http.MethodGet, "/health", "", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal("ok", s.decode(w)["status"])
	s.NotEmpty(w.Header().Get(types.HeaderRequestID))
}

func (s *RouterSuite) TestAuthentication() {
	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/assets", nil)
			if tt.header != "" {
				req.Header.Set(types.HeaderAuthorization, tt.header)
			}
			w := httptest.NewRecorder()
			s.router.ServeHTTP(w, req)

			s.Equal(tt.status, w.Code)
			s.Equal("unauthorized", s.errorCode(w))
		})
	}

	s.Run("deleted user token is refused", func() {
		token := s.tokens[types.RoleVisitor]
		s.Require().NoError(s.GetStores().UserRepo.Delete(context.Background(), visitorID))
		s.GetCache().Flush(context.Background())

		req := httptest.NewRequest(http.MethodGet, "/api/v1/assets?token="+token, nil)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		s.Equal(http.StatusUnauthorized, w.Code)
	})
}

func (s *RouterSuite) TestLoginAndMe() {
	w := s.request(http.MethodPost, "/api/v1/auth/login", "", map[string]any{"username": "manager", "password": "secret123"})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	token, _ := s.decode(w)["token"].(string)
	s.Require().NotEmpty(token)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set(types.HeaderAuthorization, "Bearer "+token)
	me := httptest.NewRecorder()
	s.router.ServeHTTP(me, req)
	s.Require().Equal(http.StatusOK, me.Code)

	u, ok := s.decode(me)["user"].(map[string]any)
	s.Require().True(ok)
	s.Equal("manager", u["username"])
	s.NotContains(me.Body.String(), "password")

	s.Run("wrong password", func() {
		w := s.request(http.MethodPost, "/api/v1/auth/login", "", map[string]any{"username": "manager", "password": "nope"})
		s.Equal(http.StatusUnauthorized, w.Code)
	})
}

func (s *RouterSuite) TestLoginRateLimit() {
	cfg := *s.GetConfig()
	cfg.Auth.LoginRate = 0.001
	cfg.Auth.LoginBurst = 2
	router := s.newRouter(&cfg)

	body := map[string]any{"username": "ghost", "password": "whatever"}
	s.Equal(http.StatusUnauthorized, s.do(router, http.MethodPost, "/api/v1/auth/login", "", body).Code)
	s.Equal(http.StatusUnauthorized, s.do(router, http.MethodPost, "/api/v1/auth/login", "", body).Code)

	w := s.do(router, http.MethodPost, "/api/v1/auth/login", "", body)
	s.Equal(http.StatusTooManyRequests, w.Code)
	s.Equal("rate_limited", s.errorCode(w))
}

func (s *RouterSuite) TestRecordLifecycle() {
	asset := s.createAsset("KEW.PA-2025-001")
	id, _ := asset["id"].(string)
	s.Require().NotEmpty(id)
	s.Equal(testutil.StaffID, asset["userId"])
	s.Equal("1500.5", asset["purchasePrice"])

	s.Run("list carries the entity key and pagination", func() {
		w := s.request(http.MethodGet, "/api/v1/assets?page=1&limit=10", types.RoleVisitor, nil)
		s.Require().Equal(http.StatusOK, w.Code)
		body := s.decode(w)
		s.Len(body["assets"], 1)
		s.Equal(map[string]any{"total": float64(1), "page": float64(1), "limit": float64(10), "pages": float64(1)}, body["pagination"])
	})

	s.Run("empty page is success", func() {
		w := s.request(http.MethodGet, "/api/v1/assets?location=Nowhere", types.RoleStaff, nil)
		s.Require().Equal(http.StatusOK, w.Code)
		body := s.decode(w)
		s.Equal([]any{}, body["assets"])
	})

	s.Run("get", func() {
		w := s.request(http.MethodGet, "/api/v1/assets/"+id, types.RoleStaff, nil)
		s.Require().Equal(http.StatusOK, w.Code)
		got, _ := s.decode(w)["asset"].(map[string]any)
		s.Equal("KEW.PA-2025-001", got["assetCode"])
	})

	s.Run("stale If-Match is a conflict", func() {
		w := s.request(http.MethodPut, "/api/v1/assets/"+id, types.RoleStaff, map[string]any{"location": "Block C"}, types.HeaderIfMatch, `"7"`)
		s.Equal(http.StatusConflict, w.Code)
		s.Equal("version_conflict", s.errorCode(w))
	})

	s.Run("malformed If-Match", func() {
		w := s.request(http.MethodPut, "/api/v1/assets/"+id, types.RoleStaff, map[string]any{"location": "Block C"}, types.HeaderIfMatch, "abc")
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("update with matching version", func() {
		w := s.request(http.MethodPut, "/api/v1/assets/"+id, types.RoleStaff, map[string]any{"location": "Block C"}, types.HeaderIfMatch, "1")
		s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
		got, _ := s.decode(w)["asset"].(map[string]any)
		s.Equal("Block C", got["location"])
		s.Equal(float64(2), got["version"])
	})

	s.Run("staff may not delete", func() {
		w := s.request(http.MethodDelete, "/api/v1/assets/"+id, types.RoleStaff, nil)
		s.Equal(http.StatusForbidden, w.Code)
		s.Equal("permission_denied", s.errorCode(w))
	})

	s.Run("soft delete hides the row", func() {
		w := s.request(http.MethodDelete, "/api/v1/assets/"+id, types.RoleManager, nil)
		s.Require().Equal(http.StatusOK, w.Code)

		s.Equal(http.StatusNotFound, s.request(http.MethodGet, "/api/v1/assets/"+id, types.RoleStaff, nil).Code)
		s.Equal(http.StatusOK, s.request(http.MethodGet, "/api/v1/assets/"+id+"?includeDeleted=true", types.RoleAdmin, nil).Code)
	})
}

func (s *RouterSuite) TestCreateValidation() {
	s.Run("visitor may not create", func() {
		w := s.request(http.MethodPost, "/api/v1/assets", types.RoleVisitor, assetBody("KEW.PA-2025-002"))
		s.Equal(http.StatusForbidden, w.Code)
	})

	s.Run("violations are listed per field", func() {
		w := s.request(http.MethodPost, "/api/v1/assets", types.RoleStaff, map[string]any{"assetName": "No code", "purchasePrice": -1})
		s.Require().Equal(http.StatusBadRequest, w.Code)
		body := s.decode(w)
		detail := body["error"].(map[string]any)
		s.Equal("validation_error", detail["code"])
		s.Equal("Validation failed", detail["message"])
		violations, ok := detail["details"].(map[string]any)["violations"].([]any)
		s.Require().True(ok)
		s.NotEmpty(violations)
	})

	s.Run("malformed body", func() {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/assets", strings.NewReader("{not json"))
		req.Header.Set(types.HeaderAuthorization, "Bearer "+s.tokens[types.RoleStaff])
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("duplicate code", func() {
		s.createAsset("KEW.PA-2025-003")
		w := s.request(http.MethodPost, "/api/v1/assets", types.RoleStaff, assetBody("KEW.PA-2025-003"))
		s.Equal(http.StatusConflict, w.Code)
		s.Equal("already_exists", s.errorCode(w))
	})
}

func (s *RouterSuite) TestWorkflowRoutes() {
	w := s.request(http.MethodPost, "/api/v1/livestock-movements", types.RoleAdmin, map[string]any{
		"livestockId":  types.GenerateUUID(),
		"fromLocation": "Pen 1",
		"toLocation":   "Pen 4",
		"purpose":      "Quarantine",
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	movement, _ := s.decode(w)["movement"].(map[string]any)
	id, _ := movement["id"].(string)
	s.Equal("pending", movement["status"])

	s.Run("staff cannot approve", func() {
		w := s.request(http.MethodPost, "/api/v1/livestock-movements/"+id+"/approve", types.RoleStaff, nil)
		s.Equal(http.StatusForbidden, w.Code)
	})

	s.Run("approve", func() {
		w := s.request(http.MethodPost, "/api/v1/livestock-movements/"+id+"/approve", types.RoleManager, map[string]any{"notes": "cleared"})
		s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
		got, _ := s.decode(w)["movement"].(map[string]any)
		s.Equal("approved", got["status"])
		s.Equal(testutil.ManagerID, got["approvedBy"])
	})

	s.Run("approving twice is refused", func() {
		w := s.request(http.MethodPost, "/api/v1/livestock-movements/"+id+"/approve", types.RoleManager, nil)
		s.Require().Equal(http.StatusConflict, w.Code)
		detail := s.decode(w)["error"].(map[string]any)
		s.Equal("invalid_transition", detail["code"])
		s.Equal("Only pending records can be approved", detail["message"])
	})

	s.Run("reject after approval is refused", func() {
		w := s.request(http.MethodPost, "/api/v1/livestock-movements/"+id+"/reject", types.RoleManager, map[string]any{"reason": "late"})
		s.Equal(http.StatusConflict, w.Code)
	})

	s.Run("entities without a workflow have no transition routes", func() {
		asset := s.createAsset("KEW.PA-2025-010")
		w := s.request(http.MethodPost, "/api/v1/assets/"+asset["id"].(string)+"/approve", types.RoleAdmin, nil)
		s.Equal(http.StatusNotFound, w.Code)
	})
}

func (s *RouterSuite) TestUserRoutes() {
	s.Run("staff cannot list users", func() {
		s.Equal(http.StatusForbidden, s.request(http.MethodGet, "/api/v1/users", types.RoleStaff, nil).Code)
	})

	s.Run("admin lists users", func() {
		w := s.request(http.MethodGet, "/api/v1/users", types.RoleAdmin, nil)
		s.Require().Equal(http.StatusOK, w.Code)
		s.Len(s.decode(w)["users"], 4)
	})

	s.Run("admin cannot delete own account", func() {
		w := s.request(http.MethodDelete, "/api/v1/users/"+testutil.AdminID, types.RoleAdmin, nil)
		s.Require().Equal(http.StatusBadRequest, w.Code)
		detail := s.decode(w)["error"].(map[string]any)
		s.Equal("invalid_operation", detail["code"])
		s.Equal("Cannot delete your own account", detail["message"])

		_, err := s.GetStores().UserRepo.GetByID(context.Background(), testutil.AdminID)
		s.NoError(err)
	})

	s.Run("toggle status", func() {
		w := s.request(http.MethodPatch, "/api/v1/users/"+testutil.StaffID+"/toggle-status", types.RoleAdmin, nil)
		s.Require().Equal(http.StatusOK, w.Code)
		u, _ := s.decode(w)["user"].(map[string]any)
		s.Equal(false, u["isActive"])
	})
}

func (s *RouterSuite) TestAuditLogRoutes() {
	s.createAsset("KEW.PA-2025-020")

	s.Equal(http.StatusForbidden, s.request(http.MethodGet, "/api/v1/audit-logs", types.RoleStaff, nil).Code)
	s.Equal(http.StatusOK, s.request(http.MethodGet, "/api/v1/audit-logs/stats", types.RoleManager, nil).Code)
	s.Equal(http.StatusBadRequest, s.request(http.MethodGet, "/api/v1/audit-logs/users/not-a-uuid/activity", types.RoleAdmin, nil).Code)
}

func (s *RouterSuite) TestInventoryRoutes() {
	w := s.request(http.MethodPost, "/api/v1/inventory", types.RoleStaff, map[string]any{
		"itemCode":     "KEW.PS-001",
		"itemName":     "A4 Paper",
		"category":     "Stationery",
		"unit":         "ream",
		"currentStock": 10,
		"minimumStock": 5,
		"unitPrice":    "12.50",
		"location":     "Store 1",
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	item, _ := s.decode(w)["item"].(map[string]any)
	id, _ := item["id"].(string)

	s.Run("zero adjustment is rejected", func() {
		w := s.request(http.MethodPost, "/api/v1/inventory/"+id+"/adjust", types.RoleStaff, map[string]any{"adjustment": 0, "reason": "count"})
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("adjust", func() {
		w := s.request(http.MethodPost, "/api/v1/inventory/"+id+"/adjust", types.RoleStaff, map[string]any{"adjustment": -6, "reason": "issued"})
		s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
		got, _ := s.decode(w)["item"].(map[string]any)
		s.Equal(float64(4), got["currentStock"])
		s.Equal("Low Stock", got["status"])
	})
}

func (s *RouterSuite) TestExport() {
	s.createAsset("KEW.PA-2025-030")

	w := s.request(http.MethodGet, "/api/v1/assets/export?format=csv", types.RoleStaff, nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Contains(w.Header().Get("Content-Type"), "text/csv")
	s.Contains(w.Header().Get("Content-Disposition"), "attachment")
	s.Contains(w.Body.String(), "KEW.PA-2025-030")
	s.Empty(w.Header().Get(types.HeaderReportURL))

	s.Equal(http.StatusBadRequest, s.request(http.MethodGet, "/api/v1/assets/export?format=xlsx", types.RoleStaff, nil).Code)
}

func (s *RouterSuite) TestCategoryBByFamily() {
	w := s.request(http.MethodGet, "/api/v1/livestock-category-b/stats/by-family", types.RoleStaff, nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Equal([]any{}, s.decode(w)["groupedData"])
}

func (s *RouterSuite) TestDashboard() {
	s.createAsset("KEW.PA-2025-090")

	w := s.request(http.MethodGet, "/api/v1/reports/dashboard", types.RoleVisitor, nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	body := s.decode(w)

	assets, _ := body["assets"].(map[string]any)
	s.Equal(float64(1), assets["total"])
	s.Equal("1500.5", assets["totalValue"])

	users, _ := body["users"].(map[string]any)
	s.Equal(float64(4), users["total"])
	s.Equal(map[string]any{"admin": float64(1), "manager": float64(1), "staff": float64(1), "visitor": float64(1)}, users["byRole"])

	s.Run("requires a token", func() {
		w := s.request(http.MethodGet, "/api/v1/reports/dashboard", "", nil)
		s.Equal(http.StatusUnauthorized, w.Code)
	})
}

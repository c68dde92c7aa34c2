package api

import (
	"github.com/gin-gonic/gin"
	v1 "github.com/kewsys/registry/internal/api/v1"
	"github.com/kewsys/registry/internal/config"
	"github.com/kewsys/registry/internal/logger"
	"github.com/kewsys/registry/internal/pyroscope"
	"github.com/kewsys/registry/internal/rbac"
	"github.com/kewsys/registry/internal/rest/middleware"
	"github.com/kewsys/registry/internal/schema"
	"github.com/kewsys/registry/internal/sentry"
)

type Handlers struct {
	Health    *v1.HealthHandler
	Auth      *v1.AuthHandler
	User      *v1.UserHandler
	AuditLog  *v1.AuditLogHandler
	Inventory *v1.InventoryHandler
	Events    *v1.EventsHandler
	Dashboard *v1.DashboardHandler
	// Records holds one handler per registry entity
	Records []*v1.RecordHandler
}

// RouterParams are the collaborators of the middleware chain
type RouterParams struct {
	Config        *config.Configuration
	Logger        *logger.Logger
	Authenticator middleware.Authenticator
	RBAC          *rbac.RBACService
	Sentry        *sentry.Service
	Pyroscope     *pyroscope.Service
}

func NewRouter(handlers Handlers, params RouterParams) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.SentryMiddleware(params.Config),
		middleware.RequestIDMiddleware,
		middleware.CORSMiddleware,
		middleware.PyroscopeMiddleware(params.Pyroscope),
		middleware.ErrorHandler(params.Config, params.Logger, params.Sentry),
	)

	router.GET("/health", handlers.Health.Health)

	v1Group := router.Group("/api/v1")
	v1Group.GET("/health", handlers.Health.Health)

	loginLimiter := middleware.NewLoginRateLimiter(params.Config, params.Logger)
	v1Group.POST("/auth/login", loginLimiter.Middleware(), handlers.Auth.Login)

	private := v1Group.Group("",
		middleware.AuthenticateMiddleware(params.Authenticator, params.Logger),
		middleware.SentryScopeMiddleware,
	)
	permission := middleware.NewPermissionMiddleware(params.RBAC, params.Logger)
	registerV1Routes(private, handlers, permission)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers, pm *middleware.PermissionMiddleware) {
	auth := router.Group("/auth")
	{
		auth.GET("/me", handlers.Auth.Me)
		auth.POST("/change-password", handlers.Auth.ChangePassword)
	}

	router.GET("/events/ws", handlers.Events.ServeWS)
	router.GET("/reports/dashboard", handlers.Dashboard.GetDashboard)

	users := router.Group("/users")
	{
		users.GET("", pm.RequirePermission(rbac.EntityUsers, schema.ActionRead), handlers.User.ListUsers)
		users.GET("/:id", pm.RequirePermission(rbac.EntityUsers, schema.ActionRead), handlers.User.GetUser)
		users.POST("", pm.RequirePermission(rbac.EntityUsers, schema.ActionWrite), handlers.User.CreateUser)
		users.PUT("/:id", pm.RequirePermission(rbac.EntityUsers, schema.ActionWrite), handlers.User.UpdateUser)
		users.DELETE("/:id", pm.RequirePermission(rbac.EntityUsers, schema.ActionDelete), handlers.User.DeleteUser)
		users.PATCH("/:id/toggle-status", pm.RequirePermission(rbac.EntityUsers, schema.ActionWrite), handlers.User.ToggleStatus)
		users.POST("/:id/reset-password", pm.RequirePermission(rbac.EntityUsers, schema.ActionWrite), handlers.User.ResetPassword)
	}

	auditLogs := router.Group("/audit-logs", pm.RequirePermission(rbac.EntityAuditLogs, schema.ActionRead))
	{
		auditLogs.GET("", handlers.AuditLog.ListAuditLogs)
		auditLogs.GET("/stats", handlers.AuditLog.GetStats)
		auditLogs.GET("/users/:userId/activity", handlers.AuditLog.GetUserActivity)
		auditLogs.GET("/:id", handlers.AuditLog.GetAuditLog)
	}

	for _, h := range handlers.Records {
		registerRecordRoutes(router, h, handlers, pm)
	}
}

// registerRecordRoutes mounts the generic routes of one entity plus its workflow
// transitions and entity specific extras
func registerRecordRoutes(router *gin.RouterGroup, h *v1.RecordHandler, handlers Handlers, pm *middleware.PermissionMiddleware) {
	e := h.Entity()
	read := pm.RequirePermission(e.Name, schema.ActionRead)
	write := pm.RequirePermission(e.Name, schema.ActionWrite)

	g := router.Group("/" + e.Name)
	{
		g.GET("", read, h.List)
		g.GET("/stats/summary", read, h.Stats)
		g.GET("/export", read, h.Export)
		g.GET("/:id", read, h.Get)
		g.POST("", write, h.Create)
		g.PUT("/:id", write, h.Update)
		g.DELETE("/:id", pm.RequirePermission(e.Name, schema.ActionDelete), h.Delete)
	}

	if e.Workflow != nil {
		for _, t := range e.Workflow.Transitions {
			g.POST("/:id/"+string(t.Name), pm.RequirePermission(e.Name, t.Permission), h.Transition(t.Name))
		}
	}

	switch e.Name {
	case schema.EntityInventory:
		g.POST("/:id/adjust", write, handlers.Inventory.AdjustStock)
	case schema.EntityLivestockCategoryB:
		g.GET("/stats/by-family", read, h.Breakdown("family", "quantity"))
	}
}

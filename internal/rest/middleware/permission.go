package middleware

import (
	"github.com/gin-gonic/gin"
	ierr "github.com/kewsys/registry/internal/errors"
	"github.com/kewsys/registry/internal/logger"
	"github.com/kewsys/registry/internal/rbac"
	"github.com/kewsys/registry/internal/schema"
	"github.com/kewsys/registry/internal/types"
)

// PermissionMiddleware handles RBAC permission checks
type PermissionMiddleware struct {
	rbacService *rbac.RBACService
	logger      *logger.Logger
}

func NewPermissionMiddleware(rbacService *rbac.RBACService, logger *logger.Logger) *PermissionMiddleware {
	return &PermissionMiddleware{
		rbacService: rbacService,
		logger:      logger,
	}
}

// RequirePermission returns a middleware that checks the actor's role against the
// allow-list of entity.action. It must run after AuthenticateMiddleware.
func (pm *PermissionMiddleware) RequirePermission(entity string, action schema.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		role := types.GetRole(ctx)
		if role == "" {
			_ = c.Error(ierr.NewError("no authenticated actor").
				WithHint("Access token required").
				Mark(ierr.ErrUnauthorized))
			c.Abort()
			return
		}

		if !pm.rbacService.HasPermission(role, entity, action) {
			pm.logger.WithContext(ctx).Infow("permission denied",
				"role", role,
				"entity", entity,
				"action", action,
				"path", c.Request.URL.Path,
			)
			_ = c.Error(ierr.NewErrorf("role %s may not %s %s", role, action, entity).
				WithHint("Insufficient permissions").
				WithReportableDetails(map[string]any{
					"requiredRoles": pm.rbacService.Roles(entity, action),
				}).
				Mark(ierr.ErrPermissionDenied))
			c.Abort()
			return
		}

		c.Next()
	}
}

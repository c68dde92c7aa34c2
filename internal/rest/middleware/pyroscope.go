package middleware

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/kewsys/registry/internal/pyroscope"
)

// PyroscopeMiddleware labels profiles with the route being served. Registry
// routes are registered per entity so the endpoint label names the entity.
func PyroscopeMiddleware(svc *pyroscope.Service) gin.HandlerFunc {
	if !svc.IsEnabled() {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		labels := map[string]string{
			"method":   c.Request.Method,
			"endpoint": c.FullPath(),
			"handler":  fmt.Sprintf("%s %s", c.Request.Method, c.FullPath()),
		}

		svc.TagWrapper(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

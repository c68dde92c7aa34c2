package middleware

import (
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/kewsys/registry/internal/config"
	"github.com/kewsys/registry/internal/types"
)

// SentryMiddleware returns a middleware that captures panics and performance data
func SentryMiddleware(cfg *config.Configuration) gin.HandlerFunc {
	if !cfg.Sentry.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return sentrygin.New(sentrygin.Options{
		Repanic:         true,
		WaitForDelivery: false,
		Timeout:         2 * time.Second,
	})
}

// SentryScopeMiddleware tags the request hub with the authenticated actor.
// It runs after authentication and is a no-op when sentry is disabled.
func SentryScopeMiddleware(c *gin.Context) {
	if hub := sentrygin.GetHubFromContext(c); hub != nil {
		ctx := c.Request.Context()
		scope := hub.Scope()
		scope.SetUser(sentry.User{
			ID:        types.GetUserID(ctx),
			Username:  types.GetUsername(ctx),
			IPAddress: types.GetIPAddress(ctx),
		})
		scope.SetTag("request_id", types.GetRequestID(ctx))
		scope.SetTag("role", types.GetRole(ctx).String())
	}
	c.Next()
}

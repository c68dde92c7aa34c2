package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kewsys/registry/internal/config"
	ierr "github.com/kewsys/registry/internal/errors"
	"github.com/kewsys/registry/internal/logger"
	"github.com/kewsys/registry/internal/sentry"
	"github.com/kewsys/registry/internal/types"
)

const internalErrorMessage = "An unexpected error occurred"

// ErrorHandler renders the last error pushed with c.Error as the standard error body.
// Server side failures are logged, reported to sentry and stripped of their
// details outside local mode.
func ErrorHandler(cfg *config.Configuration, logger *logger.Logger, sentrySvc *sentry.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		status := ierr.HTTPStatusFromErr(err)
		response := ierr.ResponseFromErr(err)

		if status >= http.StatusInternalServerError {
			ctx := c.Request.Context()
			logger.WithContext(ctx).Errorw("request failed",
				"error", err,
				"method", c.Request.Method,
				"path", c.FullPath(),
			)
			sentrySvc.CaptureException(ctx, err)

			if cfg.Deployment.Mode != types.ModeLocal {
				response.Error.Display = internalErrorMessage
				response.Error.Details = nil
			}
		}

		if c.Writer.Written() {
			return
		}
		c.JSON(status, response)
	}
}

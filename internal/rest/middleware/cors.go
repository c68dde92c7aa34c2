package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kewsys/registry/internal/types"
)

var (
	allowedHeaders = strings.Join([]string{
		"Content-Type",
		types.HeaderAuthorization,
		types.HeaderIfMatch,
		types.HeaderRequestID,
	}, ", ")
	exposedHeaders = strings.Join([]string{
		"Content-Disposition",
		types.HeaderRequestID,
		types.HeaderReportURL,
	}, ", ")
)

// CORSMiddleware handles CORS headers
func CORSMiddleware(c *gin.Context) {
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
	c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
	c.Writer.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
	c.Writer.Header().Set("Access-Control-Expose-Headers", exposedHeaders)
	c.Writer.Header().Set("Access-Control-Max-Age", "86400")

	if c.Request.Method == http.MethodOptions {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}
	c.Next()
}

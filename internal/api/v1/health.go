package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kewsys/registry/internal/logger"
)

// Pinger is the database liveness check, *postgres.DB satisfies it
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	db     Pinger
	logger *logger.Logger
}

// NewHealthHandler reports ok without probing anything when db is nil
func NewHealthHandler(
	db Pinger,
	logger *logger.Logger,
) *HealthHandler {
	return &HealthHandler{
		db:     db,
		logger: logger,
	}
}

// @Summary Health check
// @Description Reports whether the API and its database are reachable
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			h.logger.WithContext(c.Request.Context()).Errorw("health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

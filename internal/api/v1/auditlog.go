package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kewsys/registry/internal/logger"
	"github.com/kewsys/registry/internal/service"
)

type AuditLogHandler struct {
	service service.AuditLogService
	logger  *logger.Logger
}

func NewAuditLogHandler(svc service.AuditLogService, logger *logger.Logger) *AuditLogHandler {
	return &AuditLogHandler{service: svc, logger: logger}
}

// @Summary List audit logs
// @Tags AuditLogs
// @Produce json
// @Security BearerAuth
// @Param action query string false "Action"
// @Param module query string false "Module"
// @Param userId query string false "Actor"
// @Param status query string false "success, failure or warning"
// @Param startDate query string false "Lower bound"
// @Param endDate query string false "Upper bound, a bare date covers the whole day"
// @Success 200 {object} dto.ListAuditLogsResponse
// @Router /audit-logs [get]
func (h *AuditLogHandler) ListAuditLogs(c *gin.Context) {
	resp, err := h.service.ListAuditLogs(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Audit log statistics
// @Tags AuditLogs
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.AuditLogStatsResponse
// @Router /audit-logs/stats [get]
func (h *AuditLogHandler) GetStats(c *gin.Context) {
	resp, err := h.service.GetStats(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary User activity
// @Tags AuditLogs
// @Produce json
// @Security BearerAuth
// @Param userId path string true "User ID"
// @Param limit query int false "At most 500"
// @Success 200 {object} map[string]interface{}
// @Router /audit-logs/users/{userId}/activity [get]
func (h *AuditLogHandler) GetUserActivity(c *gin.Context) {
	logs, err := h.service.GetUserActivity(c.Request.Context(), c.Param("userId"), service.ParseLimit(c.Query("limit")))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

// @Summary Get audit log
// @Tags AuditLogs
// @Produce json
// @Security BearerAuth
// @Param id path string true "Audit log ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} errors.ErrorResponse
// @Router /audit-logs/{id} [get]
func (h *AuditLogHandler) GetAuditLog(c *gin.Context) {
	entry, err := h.service.GetAuditLog(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"log": entry})
}

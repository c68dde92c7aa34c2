package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kewsys/registry/internal/logger"
	"github.com/kewsys/registry/internal/service"
)

type DashboardHandler struct {
	service service.DashboardService
	logger  *logger.Logger
}

func NewDashboardHandler(svc service.DashboardService, logger *logger.Logger) *DashboardHandler {
	return &DashboardHandler{service: svc, logger: logger}
}

// @Summary Dashboard statistics
// @Description Totals across assets, inventory, livestock and users
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.DashboardResponse
// @Router /reports/dashboard [get]
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	resp, err := h.service.GetDashboard(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

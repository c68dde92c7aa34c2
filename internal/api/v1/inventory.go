package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kewsys/registry/internal/api/dto"
	"github.com/kewsys/registry/internal/logger"
	"github.com/kewsys/registry/internal/service"
)

type InventoryHandler struct {
	service service.InventoryService
	logger  *logger.Logger
}

func NewInventoryHandler(svc service.InventoryService, logger *logger.Logger) *InventoryHandler {
	return &InventoryHandler{service: svc, logger: logger}
}

// @Summary Adjust stock
// @Description Moves currentStock by a signed, non zero amount
// @Tags Inventory
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Inventory item ID"
// @Param request body dto.AdjustStockRequest true "Adjustment"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /inventory/{id}/adjust [post]
func (h *InventoryHandler) AdjustStock(c *gin.Context) {
	var req dto.AdjustStockRequest
	if err := bindJSON(c, &req); err != nil {
		c.Error(err)
		return
	}

	item, err := h.service.AdjustStock(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock adjusted successfully",
		"item":    item,
	})
}

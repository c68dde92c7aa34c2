package v1

import (
	"fmt"
	"maps"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/kewsys/registry/internal/logger"
	"github.com/kewsys/registry/internal/schema"
	"github.com/kewsys/registry/internal/service"
	"github.com/kewsys/registry/internal/types"
)

// RecordHandler serves the generic routes of one registry entity
type RecordHandler struct {
	service service.RecordService
	reports service.ReportService
	logger  *logger.Logger
}

func NewRecordHandler(svc service.RecordService, reports service.ReportService, logger *logger.Logger) *RecordHandler {
	return &RecordHandler{
		service: svc,
		reports: reports,
		logger:  logger,
	}
}

// NewRecordHandlers builds one handler per registered entity
func NewRecordHandlers(services service.RecordServices, reports service.ReportService, logger *logger.Logger) []*RecordHandler {
	out := make([]*RecordHandler, 0, len(services))
	for _, name := range slices.Sorted(maps.Keys(services)) {
		out = append(out, NewRecordHandler(services[name], reports, logger))
	}
	return out
}

func (h *RecordHandler) Entity() *schema.Entity {
	return h.service.Entity()
}

// @Summary List records
// @Description Paginated list filtered by the entity's query parameters
// @Tags Records
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page, from 1"
// @Param limit query int false "Page size, at most 100"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} errors.ErrorResponse
// @Router /{entity} [get]
func (h *RecordHandler) List(c *gin.Context) {
	resp, err := h.service.List(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		h.Entity().ListKey: resp.Items,
		"pagination":       resp.Pagination,
	})
}

// @Summary Get record
// @Tags Records
// @Produce json
// @Security BearerAuth
// @Param id path string true "Record ID"
// @Param includeDeleted query bool false "Admins may read soft deleted rows"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} errors.ErrorResponse
// @Router /{entity}/{id} [get]
func (h *RecordHandler) Get(c *gin.Context) {
	rec, err := h.service.Get(c.Request.Context(), c.Param("id"), queryBool(c, "includeDeleted"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{h.Entity().ItemKey: rec})
}

// @Summary Create record
// @Tags Records
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /{entity} [post]
func (h *RecordHandler) Create(c *gin.Context) {
	payload, err := bindPayload(c)
	if err != nil {
		c.Error(err)
		return
	}

	rec, err := h.service.Create(c.Request.Context(), payload)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":          "Record created successfully",
		h.Entity().ItemKey: rec,
	})
}

// @Summary Update record
// @Description Partial update. If-Match may carry the version the client read.
// @Tags Records
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Record ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /{entity}/{id} [put]
func (h *RecordHandler) Update(c *gin.Context) {
	version, err := ifMatch(c)
	if err != nil {
		c.Error(err)
		return
	}
	payload, err := bindPayload(c)
	if err != nil {
		c.Error(err)
		return
	}

	rec, err := h.service.Update(c.Request.Context(), c.Param("id"), payload, version)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":          "Record updated successfully",
		h.Entity().ItemKey: rec,
	})
}

// @Summary Delete record
// @Tags Records
// @Produce json
// @Security BearerAuth
// @Param id path string true "Record ID"
// @Success 200 {object} dto.SuccessResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /{entity}/{id} [delete]
func (h *RecordHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Record deleted successfully"})
}

// Transition serves POST /{entity}/{id}/{name}
func (h *RecordHandler) Transition(name types.TransitionName) gin.HandlerFunc {
	return func(c *gin.Context) {
		version, err := ifMatch(c)
		if err != nil {
			c.Error(err)
			return
		}
		body, err := bindPayload(c)
		if err != nil {
			c.Error(err)
			return
		}

		rec, err := h.service.Transition(c.Request.Context(), c.Param("id"), name, body, version)
		if err != nil {
			c.Error(err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":          fmt.Sprintf("Record %s successfully", name.PastTense()),
			h.Entity().ItemKey: rec,
		})
	}
}

// @Summary Record statistics
// @Tags Records
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /{entity}/stats/summary [get]
func (h *RecordHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// Breakdown serves a grouped count and total of sumField per groupField value
func (h *RecordHandler) Breakdown(groupField, sumField string) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := h.service.Breakdown(c.Request.Context(), groupField, sumField)
		if err != nil {
			c.Error(err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"groupedData": rows})
	}
}

// @Summary Export records
// @Description Renders every row matching the list filters as csv or json
// @Tags Records
// @Produce text/csv,application/json
// @Security BearerAuth
// @Param format query string false "csv (default) or json"
// @Success 200 {file} file
// @Failure 400 {object} errors.ErrorResponse
// @Router /{entity}/export [get]
func (h *RecordHandler) Export(c *gin.Context) {
	export, err := h.reports.Export(c.Request.Context(), h.Entity().Name, c.Request.URL.Query())
	if err != nil {
		c.Error(err)
		return
	}

	if export.URL != "" {
		c.Header(types.HeaderReportURL, export.URL)
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	c.Data(http.StatusOK, export.ContentType, export.Data)
}

package v1

import (
	"github.com/gin-gonic/gin"
	ierr "github.com/kewsys/registry/internal/errors"
	"github.com/kewsys/registry/internal/logger"
	"github.com/kewsys/registry/internal/notify"
	"github.com/kewsys/registry/internal/types"
)

// EventsHandler upgrades authenticated clients to the live event stream
type EventsHandler struct {
	hub    *notify.Hub
	logger *logger.Logger
}

func NewEventsHandler(hub *notify.Hub, logger *logger.Logger) *EventsHandler {
	return &EventsHandler{hub: hub, logger: logger}
}

// @Summary Live events
// @Description Websocket stream of registry events. Browsers pass the token as a query parameter.
// @Tags Events
// @Security BearerAuth
// @Param token query string false "Bearer token"
// @Router /events/ws [get]
func (h *EventsHandler) ServeWS(c *gin.Context) {
	userID := types.GetUserID(c.Request.Context())
	if err := h.hub.ServeWS(c.Writer, c.Request, userID); err != nil {
		// the upgrader has already written the failure response
		h.logger.WithContext(c.Request.Context()).Warnw("websocket upgrade failed", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Websocket upgrade failed").
			Mark(ierr.ErrValidation))
		return
	}
	h.logger.WithContext(c.Request.Context()).Debugw("websocket client connected", "clients", h.hub.Clients())
}

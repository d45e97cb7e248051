package ws

import (
	"encore/queue-gateway/internal/api/response"
	"encore/queue-gateway/internal/constant"
	"encore/queue-gateway/internal/domain"

	"github.com/gin-gonic/gin"
)

// Connect godoc
// @Summary      Live queue updates
// @Description  Upgrades to a websocket that first receives a snapshot of the queue, then every queue event of the venue and the private events of the caller
// @Tags         Realtime
// @Param        venueId path string true "Venue ID"
// @Success      101
// @Failure      404 {object} response.ErrorResponse "Unknown venue"
// @Router       /ws/{venueId} [get]
// @Security     GatewayAuth
func (h *WsHandler) Connect(c *gin.Context) {
	venueID := c.Param("venueId")

	snapshot, err := h.snapshotter.Snapshot(c, venueID)
	if err != nil {
		response.Error(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader already wrote the error response
		h.logger.WithContext(c).Warnf("ws: upgrade failed for venue %s: %v", venueID, err)
		return
	}

	initial := domain.VenueEvent{
		Type:     domain.EventSnapshot,
		VenueID:  venueID,
		Snapshot: snapshot,
		At:       h.now(),
	}
	if err := h.attacher.Attach(conn, venueID, c.GetString(constant.UserIdKey), initial); err != nil {
		h.logger.WithContext(c).Errorf("ws: attach failed for venue %s: %v", venueID, err)
		_ = conn.Close()
	}
}

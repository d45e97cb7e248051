package queue

import (
	"net/http"

	"encore/queue-gateway/internal/api/response"
	"encore/queue-gateway/pkg/paginator"

	"github.com/gin-gonic/gin"
)

// Get godoc
// @Summary      View the queue
// @Description  Both lanes in dispatch order plus the song currently playing
// @Tags         Queue
// @Produce      json
// @Param        venueId path string true "Venue ID"
// @Success      200 {object} response.Queue
// @Failure      404 {object} response.ErrorResponse "Unknown venue"
// @Failure      500 {object} response.ErrorResponse "Queue store failure"
// @Router       /queue/{venueId} [get]
// @Security     GatewayAuth
func (h *QueueHandler) Get(c *gin.Context) {
	snapshot, err := h.queueService.Snapshot(c, c.Param("venueId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, response.NewQueue(snapshot))
}

// History godoc
// @Summary      Queue history
// @Description  Audit trail of the venue queue, newest first
// @Tags         Queue
// @Produce      json
// @Param        venueId path string true "Venue ID"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Number of events per page" default(20)
// @Success      200 {object} response.History
// @Failure      500 {object} response.ErrorResponse "Internal server error"
// @Router       /queue/{venueId}/history [get]
// @Security     GatewayAuth
func (h *QueueHandler) History(c *gin.Context) {
	pagination := paginator.New(c, h.historyPageSize)

	events, total, err := h.historyService.History(c, c.Param("venueId"), pagination.Size, pagination.From)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, response.NewHistory(events, pagination.Page, pagination.Size, total))
}

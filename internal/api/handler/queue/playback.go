package queue

import (
	"net/http"

	"encore/queue-gateway/internal/api/response"

	"github.com/gin-gonic/gin"
)

// Next godoc
// @Summary      Play the next song
// @Description  Marks the current song as played and starts the head of the queue
// @Tags         Playback
// @Produce      json
// @Param        venueId path string true "Venue ID"
// @Success      200 {object} response.Advance
// @Failure      403 {object} response.ErrorResponse "Moderator role required"
// @Failure      404 {object} response.ErrorResponse "Nothing to play"
// @Router       /queue/{venueId}/next [patch]
// @Security     GatewayAuth
func (h *QueueHandler) Next(c *gin.Context) {
	res, err := h.queueService.Next(c, c.Param("venueId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, response.NewAdvance(res.Previous, res.Current, res.Snapshot))
}

// Skip godoc
// @Summary      Skip the current song
// @Description  Marks the current song as skipped and starts the head of the queue
// @Tags         Playback
// @Produce      json
// @Param        venueId path string true "Venue ID"
// @Param        itemId query string false "Only skip if this item is the one playing"
// @Success      200 {object} response.Advance
// @Failure      403 {object} response.ErrorResponse "Moderator role required"
// @Failure      409 {object} response.ErrorResponse "Nothing is playing, or another song is"
// @Router       /queue/{venueId}/skip [patch]
// @Security     GatewayAuth
func (h *QueueHandler) Skip(c *gin.Context) {
	res, err := h.queueService.Skip(c, c.Param("venueId"), c.Query("itemId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, response.NewAdvance(res.Previous, res.Current, res.Snapshot))
}

// Clear godoc
// @Summary      Clear the queue
// @Description  Drops every waiting request and the current song. Waiting requests are refunded.
// @Tags         Playback
// @Produce      json
// @Param        venueId path string true "Venue ID"
// @Success      200 {object} response.Clear
// @Failure      403 {object} response.ErrorResponse "Moderator role required"
// @Failure      500 {object} response.ErrorResponse "Some refunds are pending"
// @Router       /queue/{venueId}/clear [delete]
// @Security     GatewayAuth
func (h *QueueHandler) Clear(c *gin.Context) {
	res, err := h.queueService.Clear(c, c.Param("venueId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Clear{
		Drained:  len(res.Drained),
		Refunded: res.Refunded,
	})
}

package queue

import (
	"net/http"

	"encore/queue-gateway/internal/api/response"
	"encore/queue-gateway/internal/constant"

	"github.com/gin-gonic/gin"
)

// Withdraw godoc
// @Summary      Withdraw a request
// @Description  The requester takes back a pending request and gets the points back
// @Tags         Queue
// @Produce      json
// @Param        venueId path string true "Venue ID"
// @Param        itemId path string true "Queue item ID"
// @Success      200 {object} response.Removal
// @Failure      403 {object} response.ErrorResponse "Not the requester"
// @Failure      404 {object} response.ErrorResponse "Not queued"
// @Failure      409 {object} response.ErrorResponse "No longer pending"
// @Router       /queue/{venueId}/items/{itemId} [delete]
// @Security     GatewayAuth
func (h *QueueHandler) Withdraw(c *gin.Context) {
	res, err := h.queueService.Withdraw(c, c.Param("venueId"), c.Param("itemId"), c.GetString(constant.UserIdKey))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Removal{
		Item:       response.NewQueueItem(res.Item),
		Refunded:   res.Refunded,
		NewBalance: res.NewBalance,
		Queue:      response.NewQueue(res.Snapshot),
	})
}

// Approve godoc
// @Summary      Approve a request
// @Tags         Moderation
// @Produce      json
// @Param        venueId path string true "Venue ID"
// @Param        itemId path string true "Queue item ID"
// @Success      200 {object} response.Approval
// @Failure      403 {object} response.ErrorResponse "Moderator role required"
// @Failure      404 {object} response.ErrorResponse "Not queued"
// @Failure      409 {object} response.ErrorResponse "Not pending"
// @Router       /queue/{venueId}/items/{itemId}/approve [patch]
// @Security     GatewayAuth
func (h *QueueHandler) Approve(c *gin.Context) {
	res, err := h.queueService.Approve(c, c.Param("venueId"), c.Param("itemId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Approval{
		Item:  response.NewQueueItem(res.Item),
		Queue: response.NewQueue(res.Snapshot),
	})
}

// Reject godoc
// @Summary      Reject a request
// @Description  Removes a pending or approved request and refunds the requester
// @Tags         Moderation
// @Produce      json
// @Param        venueId path string true "Venue ID"
// @Param        itemId path string true "Queue item ID"
// @Success      200 {object} response.Removal
// @Failure      403 {object} response.ErrorResponse "Moderator role required"
// @Failure      404 {object} response.ErrorResponse "Not queued"
// @Router       /queue/{venueId}/items/{itemId}/reject [patch]
// @Security     GatewayAuth
func (h *QueueHandler) Reject(c *gin.Context) {
	res, err := h.queueService.Reject(c, c.Param("venueId"), c.Param("itemId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Removal{
		Item:       response.NewQueueItem(res.Item),
		Refunded:   res.Refunded,
		NewBalance: res.NewBalance,
		Queue:      response.NewQueue(res.Snapshot),
	})
}

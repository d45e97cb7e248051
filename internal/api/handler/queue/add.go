package queue

import (
	"net/http"

	"encore/queue-gateway/internal/api/request"
	"encore/queue-gateway/internal/api/response"
	"encore/queue-gateway/internal/constant"
	queueSvc "encore/queue-gateway/internal/service/queue"

	"github.com/gin-gonic/gin"
)

// Add godoc
// @Summary      Request a song
// @Description  Charge the requester and append the song to the venue queue. Priority requests cost more and play before every standard request.
// @Tags         Queue
// @Accept       json
// @Produce      json
// @Param        request body request.AddQueueRequest true "song request"
// @Param        Idempotency-Key header string false "retries with the same key are charged once"
// @Success      201 {object} response.AddSong
// @Failure      400 {object} response.ErrorResponse "Invalid request body"
// @Failure      401 {object} response.ErrorResponse "Missing identity"
// @Failure      402 {object} response.ErrorResponse "Insufficient points"
// @Failure      404 {object} response.ErrorResponse "Unknown venue or song"
// @Failure      409 {object} response.ErrorResponse "Track already queued or queue full"
// @Failure      500 {object} response.ErrorResponse "Queue store failure"
// @Failure      502 {object} response.ErrorResponse "Ledger unavailable"
// @Router       /queue/add [post]
// @Security     GatewayAuth
func (h *QueueHandler) Add(c *gin.Context) {
	var req request.AddQueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Invalid(c, err)
		return
	}

	res, err := h.queueService.AddSong(c, queueSvc.AddSongParams{
		VenueID:        req.VenueID,
		SongID:         req.SongID,
		Lane:           req.QueueLane(),
		Notes:          req.Notes,
		UserID:         c.GetString(constant.UserIdKey),
		UserName:       c.GetString(constant.UserNameKey),
		IdempotencyKey: c.GetHeader(constant.HeaderIdempotencyKey),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.AddSong{
		Item:         response.NewQueueItem(res.Item),
		Position:     res.Position.Overall,
		LanePosition: res.Position.Lane,
		Stats:        response.NewStats(res.Stats),
		NewBalance:   res.NewBalance,
	})
}

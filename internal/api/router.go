package api

import (
	"net/http"

	"encore/queue-gateway/internal/api/handler/queue"
	"encore/queue-gateway/internal/api/handler/ws"
	"encore/queue-gateway/internal/api/middleware"
	"encore/queue-gateway/internal/metrics"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Queue       *queue.QueueHandler
	Ws          *ws.WsHandler
	RateLimiter *middleware.RateLimiter
}

func (s *Server) RegisterRoutes(h Handlers) {
	r := s.engine
	r.Use(gin.Recovery(), middleware.RequestLogger(s.logger), metrics.Middleware())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	authed := r.Group("/", middleware.HandleAuth())
	authed.GET("/ws/:venueId", h.Ws.Connect)

	q := authed.Group("/queue")
	q.POST("/add", h.RateLimiter.Handle, h.Queue.Add)
	q.GET("/:venueId", h.Queue.Get)
	q.GET("/:venueId/history", h.Queue.History)
	q.DELETE("/:venueId/items/:itemId", h.Queue.Withdraw)

	mod := q.Group("", middleware.RequireModerator())
	mod.DELETE("/:venueId/clear", h.Queue.Clear)
	mod.PATCH("/:venueId/skip", h.Queue.Skip)
	mod.PATCH("/:venueId/next", h.Queue.Next)
	mod.PATCH("/:venueId/items/:itemId/approve", h.Queue.Approve)
	mod.PATCH("/:venueId/items/:itemId/reject", h.Queue.Reject)
}

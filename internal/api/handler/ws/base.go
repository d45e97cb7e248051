package ws

import (
	"context"
	"net/http"
	"time"

	"encore/queue-gateway/internal/domain"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

type WsHandler struct {
	snapshotter snapshotter
	attacher    attacher
	upgrader    websocket.Upgrader
	logger      *logrus.Logger
	now         func() time.Time
}

type snapshotter interface {
	Snapshot(ctx context.Context, venueID string) (*domain.Snapshot, error)
}

type attacher interface {
	Attach(conn *websocket.Conn, venueID, userID string, initial interface{}) error
}

// New accepts any origin; the gateway in front of the service enforces it.
func New(snapshotter snapshotter, attacher attacher, logger *logrus.Logger) *WsHandler {
	return &WsHandler{
		snapshotter: snapshotter,
		attacher:    attacher,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger,
		now:    time.Now,
	}
}

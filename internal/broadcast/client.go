package broadcast

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	pongWaitFactor = 2
	maxMessageSize = 512
)

type ClientOptions struct {
	SendBuffer   int
	WriteTimeout time.Duration
	PingInterval time.Duration
}

// Client is one websocket viewer of a venue queue. userID is empty for
// anonymous viewers, who only receive venue events.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	venueID string
	userID  string
	send    chan []byte
	opts    ClientOptions
}

func newClient(hub *Hub, conn *websocket.Conn, venueID, userID string, opts ClientOptions) *Client {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 64
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}

	return &Client{
		hub:     hub,
		conn:    conn,
		venueID: venueID,
		userID:  userID,
		send:    make(chan []byte, opts.SendBuffer),
		opts:    opts,
	}
}

func (c *Client) VenueID() string { return c.venueID }

func (c *Client) UserID() string { return c.userID }

// readPump only services control frames; viewers never send commands over
// the socket. Any read error ends the connection.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	pongWait := c.opts.PingInterval * pongWaitFactor
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

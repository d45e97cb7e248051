package broadcast

import (
	"sync"

	"encore/queue-gateway/internal/metrics"

	"github.com/sirupsen/logrus"
)

// Hub is the registry of live connections on this instance, indexed by venue
// and by user. Delivery never blocks: a client whose buffer is full misses
// the message.
type Hub struct {
	mu     sync.RWMutex
	venues map[string]map[*Client]struct{}
	users  map[string]map[*Client]struct{}
	logger *logrus.Logger
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		venues: make(map[string]map[*Client]struct{}),
		users:  make(map[string]map[*Client]struct{}),
		logger: logger,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.venues[c.venueID] == nil {
		h.venues[c.venueID] = make(map[*Client]struct{})
	}
	h.venues[c.venueID][c] = struct{}{}

	if c.userID != "" {
		if h.users[c.userID] == nil {
			h.users[c.userID] = make(map[*Client]struct{})
		}
		h.users[c.userID][c] = struct{}{}
	}

	metrics.ConnectionOpened()
}

// Unregister removes the client from both indexes and closes its send buffer.
// Calling it more than once is safe.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.venues[c.venueID][c]; !ok {
		return
	}

	delete(h.venues[c.venueID], c)
	if len(h.venues[c.venueID]) == 0 {
		delete(h.venues, c.venueID)
	}
	if c.userID != "" {
		delete(h.users[c.userID], c)
		if len(h.users[c.userID]) == 0 {
			delete(h.users, c.userID)
		}
	}

	close(c.send)
	metrics.ConnectionClosed()
}

func (h *Hub) VenueConnections(venueID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return collect(h.venues[venueID])
}

func (h *Hub) UserConnections(userID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return collect(h.users[userID])
}

func collect(set map[*Client]struct{}) []*Client {
	out := make([]*Client, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// deliverVenue and deliverUser hold the read lock while pushing so Unregister
// can not close a buffer mid-send.
func (h *Hub) deliverVenue(venueID string, msg []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.deliver(h.venues[venueID], msg, "venue")
}

func (h *Hub) deliverUser(userID string, msg []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.deliver(h.users[userID], msg, "user")
}

func (h *Hub) deliver(set map[*Client]struct{}, msg []byte, scope string) int {
	delivered := 0
	for c := range set {
		select {
		case c.send <- msg:
			delivered++
			metrics.RecordBroadcast(scope, "delivered")
		default:
			metrics.RecordBroadcast(scope, "dropped")
			h.logger.Warnf("broadcast: send buffer full for user %s at venue %s, message dropped", c.userID, c.venueID)
		}
	}
	return delivered
}

package broadcast

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"encore/queue-gateway/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPrefix = "jukebox:events"

func runBroadcaster(t *testing.T, relay Relay) *Broadcaster {
	t.Helper()

	logger := logrus.New()
	b := NewBroadcaster(NewHub(logger), relay, testPrefix, ClientOptions{SendBuffer: 8}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = b.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return b
}

func receive(t *testing.T, c *Client) map[string]interface{} {
	t.Helper()
	select {
	case msg := <-c.send:
		var out map[string]interface{}
		require.NoError(t, json.Unmarshal(msg, &out))
		return out
	case <-time.After(2 * time.Second):
		t.Fatal("no message delivered")
		return nil
	}
}

func waitSubscribed(t *testing.T, relay *LocalRelay) {
	t.Helper()
	require.Eventually(t, func() bool {
		relay.mu.RLock()
		defer relay.mu.RUnlock()
		return relay.deliver != nil
	}, time.Second, 5*time.Millisecond)
}

func TestBroadcaster_NotifyLocal(t *testing.T) {
	relay := NewLocalRelay()
	b := runBroadcaster(t, relay)
	waitSubscribed(t, relay)

	viewer := testClient(b.Hub(), "venue-1", "", 8)
	requester := testClient(b.Hub(), "venue-1", "user-1", 8)
	elsewhere := testClient(b.Hub(), "venue-2", "", 8)
	b.Hub().Register(viewer)
	b.Hub().Register(requester)
	b.Hub().Register(elsewhere)

	balance := int64(90)
	b.Notify(context.Background(), domain.Mutation{
		VenueEvent: domain.VenueEvent{
			Type:     domain.EventSongAdded,
			VenueID:  "venue-1",
			Snapshot: &domain.Snapshot{VenueID: "venue-1"},
		},
		UserEvents: []domain.UserEvent{
			{Type: domain.EventRequestConfirmed, UserID: "user-1", VenueID: "venue-1", Position: 1, NewBalance: &balance},
			{Type: domain.EventRequestConfirmed, UserID: "offline-user", VenueID: "venue-1"},
		},
	})

	ev := receive(t, viewer)
	assert.Equal(t, "song_added", ev["type"])
	assert.NotNil(t, ev["snapshot"])

	ev = receive(t, requester)
	assert.Equal(t, "song_added", ev["type"])
	ev = receive(t, requester)
	assert.Equal(t, "request_confirmed", ev["type"])
	assert.Equal(t, float64(1), ev["position"])
	assert.Equal(t, float64(90), ev["new_balance"])

	assert.Len(t, elsewhere.send, 0)
	assert.Len(t, viewer.send, 0)
}

func TestBroadcaster_PublishToAbsentUserIsNotAnError(t *testing.T) {
	b := runBroadcaster(t, NewLocalRelay())
	err := b.PublishToUser(context.Background(), domain.UserEvent{Type: domain.EventSongPlaying, UserID: "ghost"})
	assert.NoError(t, err)
}

func TestBroadcaster_RedisRelayAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	newRelay := func() *RedisRelay {
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		return NewRedisRelay(client, testPrefix, logrus.New())
	}

	// the publishing instance never runs its subscription loop
	logger := logrus.New()
	publisher := NewBroadcaster(NewHub(logger), newRelay(), testPrefix, ClientOptions{}, logger)
	subscriber := runBroadcaster(t, newRelay())
	require.Eventually(t, func() bool { return mr.PubSubNumPat() >= 2 }, 2*time.Second, 10*time.Millisecond)

	viewer := testClient(subscriber.Hub(), "venue-1", "user-1", 8)
	subscriber.Hub().Register(viewer)

	require.NoError(t, publisher.Publish(context.Background(), domain.VenueEvent{Type: domain.EventQueueCleared, VenueID: "venue-1"}))
	ev := receive(t, viewer)
	assert.Equal(t, "queue_cleared", ev["type"])

	require.NoError(t, publisher.PublishToUser(context.Background(), domain.UserEvent{Type: domain.EventSongSkipped, UserID: "user-1"}))
	ev = receive(t, viewer)
	assert.Equal(t, "song_skipped", ev["type"])
}

func TestBroadcaster_AttachWebsocket(t *testing.T) {
	relay := NewLocalRelay()
	b := runBroadcaster(t, relay)
	waitSubscribed(t, relay)

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		assert.NoError(t, b.Attach(conn, "venue-1", "user-1", domain.VenueEvent{Type: "snapshot", VenueID: "venue-1"}))
	}))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)

	read := func() map[string]interface{} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		var out map[string]interface{}
		require.NoError(t, json.Unmarshal(msg, &out))
		return out
	}

	assert.Equal(t, "snapshot", read()["type"])

	require.Eventually(t, func() bool { return len(b.Hub().VenueConnections("venue-1")) == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, b.Publish(context.Background(), domain.VenueEvent{Type: domain.EventCurrentChanged, VenueID: "venue-1"}))
	assert.Equal(t, "current_changed", read()["type"])

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return len(b.Hub().VenueConnections("venue-1")) == 0 }, 2*time.Second, 10*time.Millisecond)
}

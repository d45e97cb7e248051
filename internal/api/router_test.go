package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"encore/queue-gateway/internal/api/handler/queue"
	"encore/queue-gateway/internal/api/handler/ws"
	"encore/queue-gateway/internal/api/middleware"
	"encore/queue-gateway/internal/api/response"
	"encore/queue-gateway/internal/broadcast"
	"encore/queue-gateway/internal/config"
	"encore/queue-gateway/internal/constant"
	"encore/queue-gateway/internal/domain"
	"encore/queue-gateway/internal/ledger"
	queueStore "encore/queue-gateway/internal/queue"
	queueSvc "encore/queue-gateway/internal/service/queue"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCatalog struct{}

func (stubCatalog) GetVenue(_ context.Context, venueID string) (*domain.Venue, error) {
	if venueID != "anchor" {
		return nil, errors.Wrapf(constant.ErrNotFound, "venue %s", venueID)
	}
	return &domain.Venue{ID: venueID, Name: "The Anchor", Active: true, StandardCost: 10, PriorityCost: 25, MaxQueueLength: 100}, nil
}

func (stubCatalog) GetSong(_ context.Context, venueID, songID string) (*domain.Song, error) {
	return &domain.Song{ID: songID, VenueID: venueID, ExternalTrackID: "track-" + songID, Title: songID, Available: true}, nil
}

type stubHistory struct{}

func (stubHistory) History(_ context.Context, venueID string, limit, offset int) ([]domain.AuditEvent, int64, error) {
	return []domain.AuditEvent{{EventID: "e1", VenueID: venueID, Type: domain.EventSongAdded}}, 1, nil
}

type testServer struct {
	engine *gin.Engine
	ledger *ledger.StubLedger
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	stub := ledger.NewStubLedger(100)
	coordinator := queueSvc.NewCoordinator(stubCatalog{}, stub, queueStore.NewRedisStore(client, logger), queueSvc.Options{}, logger)

	b := broadcast.NewBroadcaster(broadcast.NewHub(logger), broadcast.NewLocalRelay(), "jukebox:events", broadcast.ClientOptions{
		SendBuffer:   8,
		WriteTimeout: time.Second,
		PingInterval: time.Minute,
	}, logger)
	svc := queueSvc.NewQueueService(coordinator, b)

	s := New(config.TestEnv, logger)
	s.RegisterRoutes(Handlers{
		Queue:       queue.New(svc, stubHistory{}, 20),
		Ws:          ws.New(svc, b, logger),
		RateLimiter: middleware.NewRateLimiter(100, 100, logger),
	})

	return &testServer{engine: s.Engine(), ledger: stub}
}

func (s *testServer) do(method, path, user, role string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(constant.HeaderUserId, user)
	}
	if role != "" {
		req.Header.Set(constant.HeaderRole, role)
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func add(song string, priority bool) map[string]interface{} {
	return map[string]interface{}{"venueId": "anchor", "songId": song, "priority": priority}
}

func TestRoutes_AddAndDuplicate(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/queue/add", "alice", "", add("x", false))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[response.AddSong](t, w)
	assert.Equal(t, 1, created.Position)
	assert.Equal(t, int64(90), created.NewBalance)
	assert.Equal(t, "track-x", created.Item.ExternalTrackID)
	assert.Equal(t, 1, created.Stats.Total)

	w = s.do(http.MethodPost, "/queue/add", "bob", "", add("x", false))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "DUPLICATE_TRACK", decode[response.ErrorResponse](t, w).Error.Code)
	assert.Equal(t, int64(100), s.ledger.Balance("bob", "anchor"))
}

func TestRoutes_AddErrors(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/queue/add", "", "", add("x", false))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/queue/add", "alice", "", map[string]interface{}{"venueId": "anchor"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_FAILED", decode[response.ErrorResponse](t, w).Error.Code)

	w = s.do(http.MethodPost, "/queue/add", "alice", "", map[string]interface{}{"venueId": "nowhere", "songId": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	s.ledger.SetBalance("carol", "anchor", 5)
	w = s.do(http.MethodPost, "/queue/add", "carol", "", add("y", true))
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, "INSUFFICIENT_POINTS", decode[response.ErrorResponse](t, w).Error.Code)
}

func TestRoutes_GetQueueOrdersPriorityFirst(t *testing.T) {
	s := newTestServer(t)

	for _, song := range []string{"a", "b", "c"} {
		require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/queue/add", "alice", "", add(song, false)).Code)
	}
	w := s.do(http.MethodPost, "/queue/add", "bob", "", add("z", true))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, decode[response.AddSong](t, w).Position)

	w = s.do(http.MethodGet, "/queue/anchor", "viewer", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	q := decode[response.Queue](t, w)
	require.Len(t, q.PriorityItems, 1)
	assert.Equal(t, "z", q.PriorityItems[0].SongID)
	assert.Len(t, q.StandardItems, 3)
	assert.Nil(t, q.Current)
	assert.Equal(t, 4, q.Stats.Total)
}

func TestRoutes_ModeratorPlayback(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/queue/add", "alice", "", add("a", false)).Code)
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/queue/add", "bob", "", add("b", false)).Code)

	w := s.do(http.MethodPatch, "/queue/anchor/next", "alice", "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPatch, "/queue/anchor/skip", "dj", constant.RoleModerator, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVALID_STATE", decode[response.ErrorResponse](t, w).Error.Code)

	w = s.do(http.MethodPatch, "/queue/anchor/next", "dj", constant.RoleModerator, nil)
	require.Equal(t, http.StatusOK, w.Code)
	advanced := decode[response.Advance](t, w)
	assert.Nil(t, advanced.Previous)
	require.NotNil(t, advanced.Current)
	assert.Equal(t, "a", advanced.Current.SongID)

	w = s.do(http.MethodPatch, "/queue/anchor/skip", "dj", constant.RoleModerator, nil)
	require.Equal(t, http.StatusOK, w.Code)
	advanced = decode[response.Advance](t, w)
	assert.Equal(t, string(domain.StatusSkipped), advanced.Previous.Status)
	assert.Equal(t, "b", advanced.Current.SongID)

	w = s.do(http.MethodDelete, "/queue/anchor/clear", "dj", constant.RoleModerator, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode[response.Clear](t, w).Drained)

	w = s.do(http.MethodGet, "/queue/anchor", "viewer", "", nil)
	assert.Nil(t, decode[response.Queue](t, w).Current)
}

func TestRoutes_WithdrawApproveReject(t *testing.T) {
	s := newTestServer(t)
	first := decode[response.AddSong](t, s.do(http.MethodPost, "/queue/add", "alice", "", add("a", false)))
	second := decode[response.AddSong](t, s.do(http.MethodPost, "/queue/add", "bob", "", add("b", true)))

	w := s.do(http.MethodDelete, "/queue/anchor/items/"+first.Item.ID, "bob", "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodDelete, "/queue/anchor/items/"+first.Item.ID, "alice", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	removed := decode[response.Removal](t, w)
	assert.Equal(t, int64(10), removed.Refunded)
	require.NotNil(t, removed.NewBalance)
	assert.Equal(t, int64(100), *removed.NewBalance)

	w = s.do(http.MethodPatch, "/queue/anchor/items/"+second.Item.ID+"/approve", "dj", constant.RoleModerator, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, string(domain.StatusApproved), decode[response.Approval](t, w).Item.Status)

	w = s.do(http.MethodPatch, "/queue/anchor/items/"+second.Item.ID+"/reject", "dj", constant.RoleModerator, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(25), decode[response.Removal](t, w).Refunded)
	assert.Equal(t, int64(100), s.ledger.Balance("bob", "anchor"))
}

func TestRoutes_HistoryAndMetrics(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/queue/anchor/history?page=2&page_size=5", "viewer", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[response.History](t, w)
	assert.Equal(t, 2, history.Meta.Page)
	assert.Equal(t, 5, history.Meta.PageSize)
	assert.Equal(t, int64(1), history.Meta.Total)
	require.Len(t, history.Data, 1)

	w = s.do(http.MethodGet, "/metrics", "", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "jukebox_http_requests_total")
}

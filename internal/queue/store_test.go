package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"encore/queue-gateway/internal/constant"
	"encore/queue-gateway/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client, logrus.New()), mr
}

func item(id, track string, lane domain.Lane) domain.QueueItem {
	return domain.QueueItem{
		ID:              id,
		VenueID:         "venue-1",
		SongID:          "song-" + id,
		ExternalTrackID: track,
		Title:           "Title " + id,
		Artist:          "Artist",
		RequesterID:     "user-" + id,
		RequesterName:   "User " + id,
		Lane:            lane,
		Status:          domain.StatusPending,
		Cost:            10,
		DebitTxID:       "tx-" + id,
		RequestedAt:     time.Date(2026, 10, 18, 21, 0, 0, 0, time.UTC),
	}
}

func TestRedisStore_EnqueueAndIsQueued(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	queued, err := store.IsQueued(ctx, "venue-1", "track-x")
	require.NoError(t, err)
	assert.False(t, queued)

	pos, err := store.Enqueue(ctx, item("a", "track-x", domain.LaneStandard), 0)
	require.NoError(t, err)
	assert.Equal(t, domain.Position{Lane: 1, Overall: 1}, pos)

	queued, err = store.IsQueued(ctx, "venue-1", "track-x")
	require.NoError(t, err)
	assert.True(t, queued)

	queued, err = store.IsQueued(ctx, "venue-2", "track-x")
	require.NoError(t, err)
	assert.False(t, queued, "venues do not share key space")
}

func TestRedisStore_EnqueueRejectsDuplicateTrack(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Enqueue(ctx, item("a", "track-x", domain.LaneStandard), 0)
	require.NoError(t, err)

	_, err = store.Enqueue(ctx, item("b", "track-x", domain.LanePriority), 0)
	assert.True(t, errors.Is(err, constant.ErrDuplicate))

	snapshot, err := store.Snapshot(ctx, "venue-1")
	require.NoError(t, err)
	assert.Len(t, snapshot.StandardItems, 1)
	assert.Empty(t, snapshot.PriorityItems)
}

func TestRedisStore_PriorityPositionJumpsStandardLane(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		pos, err := store.Enqueue(ctx, item(fmt.Sprintf("s%d", i), fmt.Sprintf("track-s%d", i), domain.LaneStandard), 0)
		require.NoError(t, err)
		assert.Equal(t, i+1, pos.Overall)
	}

	pos, err := store.Enqueue(ctx, item("z", "track-z", domain.LanePriority), 0)
	require.NoError(t, err)
	assert.Equal(t, domain.Position{Lane: 1, Overall: 1}, pos)

	pos, err = store.Enqueue(ctx, item("s3", "track-s3", domain.LaneStandard), 0)
	require.NoError(t, err)
	assert.Equal(t, domain.Position{Lane: 4, Overall: 5}, pos)

	snapshot, err := store.Snapshot(ctx, "venue-1")
	require.NoError(t, err)
	ordered := snapshot.Ordered()
	require.Len(t, ordered, 5)
	assert.Equal(t, "z", ordered[0].ID)
	for _, it := range ordered[1:] {
		assert.Equal(t, domain.LaneStandard, it.Lane)
	}
}

func TestRedisStore_EnqueueEnforcesCap(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Enqueue(ctx, item("a", "track-a", domain.LaneStandard), 2)
	require.NoError(t, err)
	_, err = store.Enqueue(ctx, item("b", "track-b", domain.LanePriority), 2)
	require.NoError(t, err)

	_, err = store.Enqueue(ctx, item("c", "track-c", domain.LanePriority), 2)
	assert.True(t, errors.Is(err, constant.ErrQueueFull))

	queued, err := store.IsQueued(ctx, "venue-1", "track-c")
	require.NoError(t, err)
	assert.False(t, queued, "a rejected enqueue leaves no dedup entry")
}

func TestRedisStore_EnqueueConcurrentSameTrack(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		dupes     int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.Enqueue(ctx, item(fmt.Sprintf("i%d", i), "track-hot", domain.LaneStandard), 0)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, constant.ErrDuplicate):
				dupes++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, dupes)
}

func TestRedisStore_Dequeue(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Enqueue(ctx, item("a", "track-a", domain.LanePriority), 0)
	require.NoError(t, err)

	removed, err := store.Dequeue(ctx, "venue-1", "a", "track-a")
	require.NoError(t, err)
	assert.True(t, removed)

	queued, err := store.IsQueued(ctx, "venue-1", "track-a")
	require.NoError(t, err)
	assert.False(t, queued)

	removed, err = store.Dequeue(ctx, "venue-1", "a", "track-a")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestRedisStore_RemoveGuards(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Enqueue(ctx, item("a", "track-a", domain.LaneStandard), 0)
	require.NoError(t, err)

	_, err = store.Remove(ctx, "venue-1", "a", RemoveGuard{RequesterID: "someone-else"})
	assert.True(t, errors.Is(err, constant.ErrForbidden))

	_, err = store.Remove(ctx, "venue-1", "a", RemoveGuard{Statuses: []domain.Status{domain.StatusApproved}})
	assert.True(t, errors.Is(err, constant.ErrInvalidTransition))

	_, err = store.Remove(ctx, "venue-1", "missing", RemoveGuard{})
	assert.True(t, errors.Is(err, constant.ErrNotFound))

	removed, err := store.Remove(ctx, "venue-1", "a", RemoveGuard{
		RequesterID: "user-a",
		Statuses:    []domain.Status{domain.StatusPending, domain.StatusApproved},
	})
	require.NoError(t, err)
	assert.Equal(t, "a", removed.ID)
	assert.Equal(t, "track-a", removed.ExternalTrackID)

	queued, err := store.IsQueued(ctx, "venue-1", "track-a")
	require.NoError(t, err)
	assert.False(t, queued)
}

func TestRedisStore_SetStatus(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Enqueue(ctx, item("a", "track-a", domain.LaneStandard), 0)
	require.NoError(t, err)
	_, err = store.Enqueue(ctx, item("b", "track-b", domain.LaneStandard), 0)
	require.NoError(t, err)

	updated, err := store.SetStatus(ctx, "venue-1", "b", domain.StatusPending, domain.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, updated.Status)
	assert.Equal(t, int64(10), updated.Cost)

	_, err = store.SetStatus(ctx, "venue-1", "b", domain.StatusPending, domain.StatusApproved)
	assert.True(t, errors.Is(err, constant.ErrInvalidTransition))

	snapshot, err := store.Snapshot(ctx, "venue-1")
	require.NoError(t, err)
	require.Len(t, snapshot.StandardItems, 2)
	assert.Equal(t, "a", snapshot.StandardItems[0].ID, "status change keeps the position")
	assert.Equal(t, domain.StatusApproved, snapshot.StandardItems[1].Status)
}

var played = PromoteOptions{Finished: domain.StatusPlayed}

func TestRedisStore_PromoteNext(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	promotion, err := store.PromoteNext(ctx, "venue-1", played)
	require.NoError(t, err)
	assert.Nil(t, promotion.Previous)
	assert.Nil(t, promotion.Current)

	_, err = store.Enqueue(ctx, item("s", "track-s", domain.LaneStandard), 0)
	require.NoError(t, err)
	_, err = store.Enqueue(ctx, item("p", "track-p", domain.LanePriority), 0)
	require.NoError(t, err)

	promotion, err = store.PromoteNext(ctx, "venue-1", played)
	require.NoError(t, err)
	assert.Nil(t, promotion.Previous)
	require.NotNil(t, promotion.Current)
	assert.Equal(t, "p", promotion.Current.ID)
	assert.Equal(t, domain.StatusPlaying, promotion.Current.Status)

	queued, err := store.IsQueued(ctx, "venue-1", "track-p")
	require.NoError(t, err)
	assert.True(t, queued, "the playing track stays deduplicated")

	promotion, err = store.PromoteNext(ctx, "venue-1", played)
	require.NoError(t, err)
	require.NotNil(t, promotion.Previous)
	assert.Equal(t, "p", promotion.Previous.ID)
	assert.Equal(t, domain.StatusPlayed, promotion.Previous.Status)
	assert.Equal(t, "s", promotion.Current.ID)

	queued, err = store.IsQueued(ctx, "venue-1", "track-p")
	require.NoError(t, err)
	assert.False(t, queued, "a finished track can be requested again")

	snapshot, err := store.Snapshot(ctx, "venue-1")
	require.NoError(t, err)
	assert.Empty(t, snapshot.Ordered())
	require.NotNil(t, snapshot.Current)
	assert.Equal(t, "s", snapshot.Current.ID)
}

func TestRedisStore_PromoteNextApprovedOnly(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Enqueue(ctx, item("a", "track-a", domain.LanePriority), 0)
	require.NoError(t, err)
	_, err = store.Enqueue(ctx, item("b", "track-b", domain.LaneStandard), 0)
	require.NoError(t, err)
	_, err = store.SetStatus(ctx, "venue-1", "b", domain.StatusPending, domain.StatusApproved)
	require.NoError(t, err)

	promotion, err := store.PromoteNext(ctx, "venue-1", PromoteOptions{Finished: domain.StatusPlayed, ApprovedOnly: true})
	require.NoError(t, err)
	require.NotNil(t, promotion.Current)
	assert.Equal(t, "b", promotion.Current.ID)

	snapshot, err := store.Snapshot(ctx, "venue-1")
	require.NoError(t, err)
	require.Len(t, snapshot.PriorityItems, 1)
	assert.Equal(t, "a", snapshot.PriorityItems[0].ID)
}

func TestRedisStore_PromoteNextGuardsTheCurrentSlot(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_, err := store.Enqueue(ctx, item(id, "track-"+id, domain.LaneStandard), 0)
		require.NoError(t, err)
	}

	skip := PromoteOptions{Finished: domain.StatusSkipped, RequireCurrent: true}
	_, err := store.PromoteNext(ctx, "venue-1", skip)
	assert.True(t, errors.Is(err, constant.ErrInvalidTransition))

	snapshot, err := store.Snapshot(ctx, "venue-1")
	require.NoError(t, err)
	assert.Nil(t, snapshot.Current)
	assert.Len(t, snapshot.StandardItems, 3, "a refused skip promotes nothing")

	_, err = store.PromoteNext(ctx, "venue-1", played)
	require.NoError(t, err)
	_, err = store.PromoteNext(ctx, "venue-1", played)
	require.NoError(t, err)

	skip.ExpectCurrentID = "a"
	_, err = store.PromoteNext(ctx, "venue-1", skip)
	assert.True(t, errors.Is(err, constant.ErrInvalidTransition), "b started playing in between")

	snapshot, err = store.Snapshot(ctx, "venue-1")
	require.NoError(t, err)
	require.NotNil(t, snapshot.Current)
	assert.Equal(t, "b", snapshot.Current.ID)
	assert.Equal(t, domain.StatusPlaying, snapshot.Current.Status)

	skip.ExpectCurrentID = "b"
	promotion, err := store.PromoteNext(ctx, "venue-1", skip)
	require.NoError(t, err)
	assert.Equal(t, "b", promotion.Previous.ID)
	assert.Equal(t, domain.StatusSkipped, promotion.Previous.Status)
	assert.Equal(t, "c", promotion.Current.ID)
}

func TestRedisStore_ClearIsIdempotent(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	_, err := store.Enqueue(ctx, item("a", "track-a", domain.LaneStandard), 0)
	require.NoError(t, err)
	_, err = store.Enqueue(ctx, item("b", "track-b", domain.LanePriority), 0)
	require.NoError(t, err)
	_, err = store.PromoteNext(ctx, "venue-1", played)
	require.NoError(t, err)

	_, err = store.Enqueue(ctx, item("c", "track-c", domain.LaneStandard), 0)
	require.NoError(t, err)

	drained, err := store.Clear(ctx, "venue-1")
	require.NoError(t, err)
	require.Len(t, drained, 2)
	assert.Equal(t, "a", drained[0].ID)
	assert.Equal(t, "c", drained[1].ID)
	first := mr.Keys()

	drained, err = store.Clear(ctx, "venue-1")
	require.NoError(t, err)
	assert.Empty(t, drained)
	assert.Equal(t, first, mr.Keys())
	assert.Empty(t, mr.Keys())

	snapshot, err := store.Snapshot(ctx, "venue-1")
	require.NoError(t, err)
	assert.Nil(t, snapshot.Current)
	assert.Equal(t, domain.Stats{}, snapshot.Stats)
}

func TestRedisStore_StoreOutageIsStoreError(t *testing.T) {
	store, mr := newTestStore(t)
	mr.Close()

	_, err := store.Enqueue(context.Background(), item("a", "track-a", domain.LaneStandard), 0)
	assert.True(t, errors.Is(err, constant.ErrStore))
}

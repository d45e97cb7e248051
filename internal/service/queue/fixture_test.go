package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"encore/queue-gateway/internal/constant"
	"encore/queue-gateway/internal/domain"
	"encore/queue-gateway/internal/ledger"
	queueStore "encore/queue-gateway/internal/queue"

	"github.com/alicebob/miniredis/v2"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	venues map[string]domain.Venue
}

func (f *fakeCatalog) GetVenue(_ context.Context, venueID string) (*domain.Venue, error) {
	v, ok := f.venues[venueID]
	if !ok || !v.Active {
		return nil, errors.Wrapf(constant.ErrNotFound, "venue %s", venueID)
	}
	return &v, nil
}

// every song id resolves to track "track-<id>" except "missing"
func (f *fakeCatalog) GetSong(_ context.Context, venueID, songID string) (*domain.Song, error) {
	if songID == "missing" {
		return nil, errors.Wrapf(constant.ErrNotFound, "song %s", songID)
	}
	return &domain.Song{
		ID:              songID,
		VenueID:         venueID,
		ExternalTrackID: "track-" + songID,
		Title:           "Title " + songID,
		Artist:          "Artist",
		Available:       true,
	}, nil
}

// scriptedLedger wraps the in-memory ledger with injectable failures.
type scriptedLedger struct {
	*ledger.StubLedger

	mu              sync.Mutex
	debitAmbiguous  bool
	landOnAmbiguous bool
	creditErr       error
	lookupErr       error
	hideDebits      bool
	afterDebit      func()
	credits         []domain.CreditRequest
	debitKeys       []string
}

func (l *scriptedLedger) Debit(ctx context.Context, req domain.DebitRequest) (*domain.DebitResult, error) {
	l.mu.Lock()
	ambiguous, land := l.debitAmbiguous, l.landOnAmbiguous
	l.debitKeys = append(l.debitKeys, req.IdempotencyKey)
	l.mu.Unlock()

	if ambiguous {
		if land {
			if _, err := l.StubLedger.Debit(ctx, req); err != nil {
				return nil, err
			}
		}
		return nil, errors.Wrap(constant.ErrLedgerAmbiguous, "context deadline exceeded")
	}

	res, err := l.StubLedger.Debit(ctx, req)
	if l.afterDebit != nil {
		l.afterDebit()
	}
	return res, err
}

func (l *scriptedLedger) Credit(ctx context.Context, req domain.CreditRequest) (*domain.CreditResult, error) {
	l.mu.Lock()
	l.credits = append(l.credits, req)
	creditErr := l.creditErr
	l.mu.Unlock()

	if creditErr != nil {
		return nil, creditErr
	}
	return l.StubLedger.Credit(ctx, req)
}

// Lookup can hide debits to act like a second attempt that checked the key
// before the first one was charged.
func (l *scriptedLedger) Lookup(ctx context.Context, key string) (*domain.Transaction, error) {
	if l.lookupErr != nil {
		return nil, l.lookupErr
	}
	tx, err := l.StubLedger.Lookup(ctx, key)
	if tx != nil && tx.Kind == domain.TransactionDebit && l.hideDebits {
		return nil, err
	}
	return tx, err
}

// faultyStore wraps the redis store with injectable write failures.
type faultyStore struct {
	*queueStore.RedisStore

	enqueueErr     error
	panicOnEnqueue bool
	hideQueued     bool
	beforePromote  func()
}

func (f *faultyStore) IsQueued(ctx context.Context, venueID, trackID string) (bool, error) {
	if f.hideQueued {
		return false, nil
	}
	return f.RedisStore.IsQueued(ctx, venueID, trackID)
}

func (f *faultyStore) Enqueue(ctx context.Context, item domain.QueueItem, maxLength int) (domain.Position, error) {
	if f.panicOnEnqueue {
		panic("connection pool exhausted")
	}
	if f.enqueueErr != nil {
		return domain.Position{}, f.enqueueErr
	}
	return f.RedisStore.Enqueue(ctx, item, maxLength)
}

func (f *faultyStore) PromoteNext(ctx context.Context, venueID string, opts queueStore.PromoteOptions) (*domain.Promotion, error) {
	if hook := f.beforePromote; hook != nil {
		f.beforePromote = nil
		hook()
	}
	return f.RedisStore.PromoteNext(ctx, venueID, opts)
}

type fixture struct {
	coordinator *Coordinator
	store       *faultyStore
	ledger      *scriptedLedger
	catalog     *fakeCatalog
	redis       *miniredis.Miniredis
}

const venueID = "anchor"

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	store := &faultyStore{RedisStore: queueStore.NewRedisStore(client, logger)}
	ledgerClient := &scriptedLedger{StubLedger: ledger.NewStubLedger(100)}
	catalog := &fakeCatalog{venues: map[string]domain.Venue{
		venueID: {ID: venueID, Name: "The Anchor", Active: true, StandardCost: 10, PriorityCost: 25, MaxQueueLength: 100},
		"strict": {ID: "strict", Name: "Strict", Active: true, StandardCost: 10, PriorityCost: 25, MaxQueueLength: 100, RequireApproval: true},
		"tiny":   {ID: "tiny", Name: "Tiny", Active: true, StandardCost: 10, PriorityCost: 25, MaxQueueLength: 1},
		"closed": {ID: "closed", Name: "Closed", Active: false},
	}}

	coordinator := NewCoordinator(catalog, ledgerClient, store, Options{
		LedgerTimeout:    time.Second,
		ReconcileTimeout: time.Second,
	}, logger)
	coordinator.now = func() time.Time { return time.Date(2026, 10, 18, 22, 0, 0, 0, time.UTC) }

	return &fixture{
		coordinator: coordinator,
		store:       store,
		ledger:      ledgerClient,
		catalog:     catalog,
		redis:       mr,
	}
}

func request(venue, song, user string, lane domain.Lane) AddSongParams {
	return AddSongParams{
		VenueID:  venue,
		SongID:   song,
		Lane:     lane,
		UserID:   user,
		UserName: "Patron " + user,
	}
}

func (f *fixture) add(t *testing.T, song, user string, lane domain.Lane) *AddResult {
	t.Helper()
	res, err := f.coordinator.AddSong(context.Background(), request(venueID, song, user, lane))
	require.NoError(t, err)
	return res
}

func (f *fixture) snapshot(t *testing.T, venue string) *domain.Snapshot {
	t.Helper()
	snapshot, err := f.store.Snapshot(context.Background(), venue)
	require.NoError(t, err)
	return snapshot
}

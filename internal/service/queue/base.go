package queue

import (
	"context"
	"time"

	"encore/queue-gateway/internal/domain"
	queueStore "encore/queue-gateway/internal/queue"

	"github.com/sirupsen/logrus"
)

// Coordinator runs every queue mutation: the paid add saga across the points
// ledger and the queue store, and the lifecycle transitions after it. It never
// publishes; each operation returns the mutation it committed.
type Coordinator struct {
	catalog catalogService
	ledger  PointsLedger
	store   itemStore
	opts    Options
	logger  *logrus.Logger
	now     func() time.Time
}

type Options struct {
	// LedgerTimeout bounds each debit and credit call.
	LedgerTimeout time.Duration
	// ReconcileTimeout bounds the lookup made after an ambiguous debit timeout.
	ReconcileTimeout time.Duration
}

type catalogService interface {
	GetVenue(ctx context.Context, venueID string) (*domain.Venue, error)
	GetSong(ctx context.Context, venueID, songID string) (*domain.Song, error)
}

// PointsLedger is the external points ledger the add saga charges.
type PointsLedger interface {
	Debit(ctx context.Context, req domain.DebitRequest) (*domain.DebitResult, error)
	Credit(ctx context.Context, req domain.CreditRequest) (*domain.CreditResult, error)
	Lookup(ctx context.Context, idempotencyKey string) (*domain.Transaction, error)
}

type itemStore interface {
	IsQueued(ctx context.Context, venueID, trackID string) (bool, error)
	Len(ctx context.Context, venueID string) (int, error)
	Enqueue(ctx context.Context, item domain.QueueItem, maxLength int) (domain.Position, error)
	Remove(ctx context.Context, venueID, itemID string, guard queueStore.RemoveGuard) (*domain.QueueItem, error)
	SetStatus(ctx context.Context, venueID, itemID string, from, to domain.Status) (*domain.QueueItem, error)
	PromoteNext(ctx context.Context, venueID string, opts queueStore.PromoteOptions) (*domain.Promotion, error)
	Snapshot(ctx context.Context, venueID string) (*domain.Snapshot, error)
	Clear(ctx context.Context, venueID string) ([]domain.QueueItem, error)
}

func NewCoordinator(
	catalog catalogService,
	ledger PointsLedger,
	store itemStore,
	opts Options,
	logger *logrus.Logger,
) *Coordinator {
	if opts.LedgerTimeout <= 0 {
		opts.LedgerTimeout = 3 * time.Second
	}
	if opts.ReconcileTimeout <= 0 {
		opts.ReconcileTimeout = 5 * time.Second
	}

	return &Coordinator{
		catalog: catalog,
		ledger:  ledger,
		store:   store,
		opts:    opts,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

package queue

import (
	"context"
	"unicode/utf8"

	"encore/queue-gateway/internal/constant"
	"encore/queue-gateway/internal/domain"
	"encore/queue-gateway/internal/metrics"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const maxNotesLength = 280

type AddSongParams struct {
	VenueID  string
	SongID   string
	Lane     domain.Lane
	Notes    string
	UserID   string
	UserName string
	// IdempotencyKey lets a client retry a request without paying twice. It
	// is scoped to the requester, venue, track, lane and price. A fresh key is
	// generated when empty.
	IdempotencyKey string
}

func (p AddSongParams) validate() error {
	switch {
	case p.UserID == "":
		return errors.Wrap(constant.ErrValidation, "requester is required")
	case p.VenueID == "":
		return errors.Wrap(constant.ErrValidation, "venue id is required")
	case p.SongID == "":
		return errors.Wrap(constant.ErrValidation, "song id is required")
	case p.Lane != domain.LanePriority && p.Lane != domain.LaneStandard:
		return errors.Wrapf(constant.ErrValidation, "unknown lane %q", p.Lane)
	case utf8.RuneCountInString(p.Notes) > maxNotesLength:
		return errors.Wrapf(constant.ErrValidation, "notes exceed %d characters", maxNotesLength)
	}
	return nil
}

type AddResult struct {
	Item       domain.QueueItem
	Position   domain.Position
	Stats      domain.Stats
	NewBalance int64
	Mutation   domain.Mutation
}

// AddSong charges the requester and queues the song. The order is fixed:
// duplicate check, debit, atomic store write. Once the debit succeeds the
// saga ignores caller cancellation, and a failed write is always followed by
// a compensating credit before the error is returned.
func (c *Coordinator) AddSong(ctx context.Context, p AddSongParams) (res *AddResult, err error) {
	defer func() { metrics.RecordSaga(string(p.Lane), sagaOutcome(err)) }()

	if err := p.validate(); err != nil {
		return nil, err
	}

	venue, err := c.catalog.GetVenue(ctx, p.VenueID)
	if err != nil {
		return nil, err
	}
	song, err := c.catalog.GetSong(ctx, p.VenueID, p.SongID)
	if err != nil {
		return nil, err
	}
	cost := venue.Cost(p.Lane)

	queued, err := c.store.IsQueued(ctx, venue.ID, song.ExternalTrackID)
	if err != nil {
		return nil, err
	}
	if queued {
		return nil, errors.Wrapf(constant.ErrDuplicate, "track %s at venue %s", song.ExternalTrackID, venue.ID)
	}

	if venue.MaxQueueLength > 0 {
		n, err := c.store.Len(ctx, venue.ID)
		if err != nil {
			return nil, err
		}
		if n >= venue.MaxQueueLength {
			return nil, errors.Wrapf(constant.ErrQueueFull, "venue %s holds %d items", venue.ID, n)
		}
	}

	itemID := uuid.NewString()
	keyed := p.IdempotencyKey != ""
	key := "queue-add:" + itemID
	if keyed {
		key = debitKey(p, venue.ID, song.ExternalTrackID, cost)
	}

	debitReq := domain.DebitRequest{
		IdempotencyKey: key,
		UserID:         p.UserID,
		VenueID:        venue.ID,
		Amount:         cost,
		Reason:         "song request",
		Metadata: map[string]string{
			"item_id":  itemID,
			"song_id":  song.ID,
			"track_id": song.ExternalTrackID,
			"lane":     string(p.Lane),
		},
	}

	if keyed {
		if debitReq.IdempotencyKey, err = c.unspentKey(ctx, debitReq); err != nil {
			return nil, err
		}
	}

	debit, err := c.debit(ctx, debitReq)
	if err != nil {
		return nil, err
	}
	if debit.Replayed {
		return nil, errors.Wrapf(constant.ErrIdempotencyConflict, "debit %s belongs to a concurrent attempt", debit.TransactionID)
	}

	ctx = context.WithoutCancel(ctx)

	item := domain.QueueItem{
		ID:              itemID,
		VenueID:         venue.ID,
		SongID:          song.ID,
		ExternalTrackID: song.ExternalTrackID,
		Title:           song.Title,
		Artist:          song.Artist,
		RequesterID:     p.UserID,
		RequesterName:   p.UserName,
		Lane:            p.Lane,
		Status:          domain.StatusPending,
		Cost:            cost,
		DebitTxID:       debit.TransactionID,
		RequestedAt:     c.now(),
		Notes:           p.Notes,
	}

	pos, err := guardedEnqueue(func() (domain.Position, error) {
		return c.store.Enqueue(ctx, item, venue.MaxQueueLength)
	})
	if err != nil {
		c.logger.WithContext(ctx).Warnf("queue: write failed after debit %s, refunding %d points to %s: %v",
			debit.TransactionID, cost, p.UserID, err)
		if _, cerr := c.refund(ctx, refundFor(debitReq, debit.TransactionID, "queue write failed")); cerr != nil {
			return nil, cerr
		}
		return nil, err
	}

	snapshot := c.snapshotAfterWrite(ctx, venue.ID)
	now := c.now()
	balance := debit.NewBalance

	return &AddResult{
		Item:       item,
		Position:   pos,
		Stats:      statsOf(snapshot),
		NewBalance: balance,
		Mutation: domain.Mutation{
			VenueEvent: venueEvent(domain.EventSongAdded, venue.ID, snapshot, &item, now),
			UserEvents: []domain.UserEvent{{
				Type:       domain.EventRequestConfirmed,
				UserID:     p.UserID,
				VenueID:    venue.ID,
				Item:       &item,
				Position:   pos.Overall,
				NewBalance: &balance,
				At:         now,
			}},
			Audit: []domain.AuditEvent{auditEvent(domain.EventSongAdded, item, pos.Overall, now)},
		},
	}, nil
}

// guardedEnqueue turns a panic in the write path into a store error so the
// caller still reaches compensation.
func guardedEnqueue(write func() (domain.Position, error)) (pos domain.Position, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(constant.ErrStore, "enqueue panicked: %v", r)
		}
	}()
	return write()
}

func sagaOutcome(err error) string {
	switch {
	case err == nil:
		return "created"
	case errors.Is(err, constant.ErrValidation):
		return "invalid"
	case errors.Is(err, constant.ErrNotFound):
		return "not_found"
	case errors.Is(err, constant.ErrDuplicate):
		return "duplicate"
	case errors.Is(err, constant.ErrQueueFull):
		return "queue_full"
	case errors.Is(err, constant.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, constant.ErrIdempotencyConflict):
		return "idempotency_conflict"
	case errors.Is(err, constant.ErrCompensation):
		return "compensation_failed"
	case errors.Is(err, constant.ErrLedger):
		return "ledger_error"
	case errors.Is(err, constant.ErrStore):
		return "store_error"
	}
	return "error"
}

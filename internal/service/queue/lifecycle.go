package queue

import (
	"context"

	"encore/queue-gateway/internal/constant"
	"encore/queue-gateway/internal/domain"
	queueStore "encore/queue-gateway/internal/queue"

	"github.com/pkg/errors"
)

// Snapshot returns the venue's queue as viewers see it.
func (c *Coordinator) Snapshot(ctx context.Context, venueID string) (*domain.Snapshot, error) {
	if _, err := c.catalog.GetVenue(ctx, venueID); err != nil {
		return nil, err
	}
	return c.store.Snapshot(ctx, venueID)
}

type AdvanceResult struct {
	Previous *domain.QueueItem
	Current  *domain.QueueItem
	Snapshot *domain.Snapshot
	Mutation domain.Mutation
}

// Next finishes the current song as played and starts the dispatch head.
func (c *Coordinator) Next(ctx context.Context, venueID string) (*AdvanceResult, error) {
	return c.advance(ctx, venueID, queueStore.PromoteOptions{Finished: domain.StatusPlayed})
}

// Skip finishes the current song as skipped and starts the dispatch head. It
// requires a song to be playing and, when expectedItemID is given, that song
// to be the one playing.
func (c *Coordinator) Skip(ctx context.Context, venueID, expectedItemID string) (*AdvanceResult, error) {
	return c.advance(ctx, venueID, queueStore.PromoteOptions{
		Finished:        domain.StatusSkipped,
		RequireCurrent:  true,
		ExpectCurrentID: expectedItemID,
	})
}

func (c *Coordinator) advance(ctx context.Context, venueID string, opts queueStore.PromoteOptions) (*AdvanceResult, error) {
	if !opts.Finished.Terminal() || !domain.CanTransition(domain.StatusPlaying, opts.Finished) {
		return nil, errors.Wrapf(constant.ErrInvalidTransition, "a playing song can not end as %s", opts.Finished)
	}

	venue, err := c.catalog.GetVenue(ctx, venueID)
	if err != nil {
		return nil, err
	}

	opts.ApprovedOnly = venue.RequireApproval
	promotion, err := c.store.PromoteNext(ctx, venueID, opts)
	if err != nil {
		return nil, err
	}
	if promotion.Previous == nil && promotion.Current == nil {
		return nil, errors.Wrapf(constant.ErrNotFound, "queue of venue %s is empty", venueID)
	}

	ctx = context.WithoutCancel(ctx)
	snapshot := c.snapshotAfterWrite(ctx, venueID)
	now := c.now()

	result := &AdvanceResult{
		Current:  promotion.Current,
		Snapshot: snapshot,
		Mutation: domain.Mutation{
			VenueEvent: venueEvent(domain.EventCurrentChanged, venueID, snapshot, promotion.Current, now),
		},
	}

	if promotion.Previous != nil {
		previous := *promotion.Previous
		result.Previous = &previous

		kind := domain.EventSongPlayed
		if opts.Finished == domain.StatusSkipped {
			kind = domain.EventSongSkipped
		}
		result.Mutation.UserEvents = append(result.Mutation.UserEvents, userEvent(kind, previous, now))
		result.Mutation.Audit = append(result.Mutation.Audit, auditEvent(kind, previous, 0, now))
	}

	if promotion.Current != nil {
		current := *promotion.Current
		result.Mutation.UserEvents = append(result.Mutation.UserEvents, userEvent(domain.EventSongPlaying, current, now))
		result.Mutation.Audit = append(result.Mutation.Audit, auditEvent(domain.EventSongPlaying, current, 0, now))
	}

	return result, nil
}

type RemoveResult struct {
	Item     domain.QueueItem
	Refunded int64
	// NewBalance is the requester's balance after the refund, when the ledger reported one.
	NewBalance *int64
	Snapshot   *domain.Snapshot
	Mutation   domain.Mutation
}

// Withdraw lets a requester take back their own pending request. The points
// are returned.
func (c *Coordinator) Withdraw(ctx context.Context, venueID, itemID, userID string) (*RemoveResult, error) {
	if userID == "" {
		return nil, errors.Wrap(constant.ErrValidation, "requester is required")
	}

	item, err := c.store.Remove(ctx, venueID, itemID, queueStore.RemoveGuard{
		RequesterID: userID,
		Statuses:    domain.Sources(domain.StatusRemoved),
	})
	if err != nil {
		return nil, err
	}

	return c.removed(ctx, *item, domain.StatusRemoved, domain.EventRequestWithdrawn, "request withdrawn")
}

// Reject removes a pending or approved request on a moderator's behalf and
// refunds it.
func (c *Coordinator) Reject(ctx context.Context, venueID, itemID string) (*RemoveResult, error) {
	item, err := c.store.Remove(ctx, venueID, itemID, queueStore.RemoveGuard{
		Statuses: domain.Sources(domain.StatusRejected),
	})
	if err != nil {
		return nil, err
	}

	return c.removed(ctx, *item, domain.StatusRejected, domain.EventRequestRejected, "request rejected")
}

// removed finishes a committed removal. When the refund fails the result is
// still returned together with ErrCompensation so the change gets published.
func (c *Coordinator) removed(ctx context.Context, item domain.QueueItem, status domain.Status, kind domain.EventType, reason string) (*RemoveResult, error) {
	ctx = context.WithoutCancel(ctx)
	item.Status = status

	result := &RemoveResult{Item: item}

	var refundErr error
	if status.Refundable() && item.Cost > 0 && item.DebitTxID != "" {
		credit, err := c.refund(ctx, refundForItem(item, reason))
		if err != nil {
			refundErr = err
		} else {
			result.Refunded = item.Cost
			balance := credit.NewBalance
			result.NewBalance = &balance
		}
	}

	snapshot := c.snapshotAfterWrite(ctx, item.VenueID)
	now := c.now()

	private := userEvent(kind, item, now)
	private.Refunded = result.Refunded
	private.NewBalance = result.NewBalance

	result.Snapshot = snapshot
	result.Mutation = domain.Mutation{
		VenueEvent: venueEvent(domain.EventSongRemoved, item.VenueID, snapshot, &item, now),
		UserEvents: []domain.UserEvent{private},
		Audit:      []domain.AuditEvent{auditEvent(kind, item, 0, now)},
	}

	return result, refundErr
}

type ApproveResult struct {
	Item     domain.QueueItem
	Snapshot *domain.Snapshot
	Mutation domain.Mutation
}

// Approve marks a pending request as cleared for playback.
func (c *Coordinator) Approve(ctx context.Context, venueID, itemID string) (*ApproveResult, error) {
	item, err := c.store.SetStatus(ctx, venueID, itemID, domain.StatusPending, domain.StatusApproved)
	if err != nil {
		return nil, err
	}

	ctx = context.WithoutCancel(ctx)
	snapshot := c.snapshotAfterWrite(ctx, venueID)
	now := c.now()

	return &ApproveResult{
		Item:     *item,
		Snapshot: snapshot,
		Mutation: domain.Mutation{
			VenueEvent: venueEvent(domain.EventQueueReordered, venueID, snapshot, item, now),
			UserEvents: []domain.UserEvent{userEvent(domain.EventRequestApproved, *item, now)},
			Audit:      []domain.AuditEvent{auditEvent(domain.EventRequestApproved, *item, 0, now)},
		},
	}, nil
}

type ClearResult struct {
	Drained  []domain.QueueItem
	Refunded int64
	Mutation domain.Mutation
}

// Clear empties the venue queue. Waiting requests are refunded one by one;
// refunds that fail are escalated and reported after the rest went through.
// The song that was playing is not refunded.
func (c *Coordinator) Clear(ctx context.Context, venueID string) (*ClearResult, error) {
	if _, err := c.catalog.GetVenue(ctx, venueID); err != nil {
		return nil, err
	}

	drained, err := c.store.Clear(ctx, venueID)
	if err != nil {
		return nil, err
	}

	ctx = context.WithoutCancel(ctx)
	now := c.now()

	result := &ClearResult{
		Drained: drained,
		Mutation: domain.Mutation{
			VenueEvent: venueEvent(domain.EventQueueCleared, venueID, &domain.Snapshot{
				VenueID:       venueID,
				PriorityItems: []domain.QueueItem{},
				StandardItems: []domain.QueueItem{},
			}, nil, now),
		},
	}

	var failed int
	for _, item := range drained {
		item.Status = domain.StatusRemoved
		private := userEvent(domain.EventRequestWithdrawn, item, now)

		if item.Cost > 0 && item.DebitTxID != "" {
			credit, err := c.refund(ctx, refundForItem(item, "queue cleared"))
			if err != nil {
				failed++
			} else {
				result.Refunded += item.Cost
				private.Type = domain.EventPointsRefunded
				private.Refunded = item.Cost
				balance := credit.NewBalance
				private.NewBalance = &balance
			}
		}

		result.Mutation.UserEvents = append(result.Mutation.UserEvents, private)
		result.Mutation.Audit = append(result.Mutation.Audit, auditEvent(domain.EventQueueCleared, item, 0, now))
	}

	if failed > 0 {
		return result, errors.Wrapf(constant.ErrCompensation, "%d of %d refunds failed while clearing venue %s", failed, len(drained), venueID)
	}
	return result, nil
}

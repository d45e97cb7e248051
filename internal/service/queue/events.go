package queue

import (
	"context"
	"time"

	"encore/queue-gateway/internal/domain"

	"github.com/google/uuid"
)

// snapshotAfterWrite feeds the broadcast and the response stats. The write has
// already committed, so a failed read only degrades what viewers see.
func (c *Coordinator) snapshotAfterWrite(ctx context.Context, venueID string) *domain.Snapshot {
	snapshot, err := c.store.Snapshot(ctx, venueID)
	if err != nil {
		c.logger.WithContext(ctx).Warnf("queue: snapshot after write failed for venue %s: %v", venueID, err)
		return nil
	}
	return snapshot
}

func statsOf(snapshot *domain.Snapshot) domain.Stats {
	if snapshot == nil {
		return domain.Stats{}
	}
	return snapshot.Stats
}

func venueEvent(kind domain.EventType, venueID string, snapshot *domain.Snapshot, item *domain.QueueItem, at time.Time) domain.VenueEvent {
	return domain.VenueEvent{
		Type:     kind,
		VenueID:  venueID,
		Snapshot: snapshot,
		Item:     item,
		At:       at,
	}
}

func userEvent(kind domain.EventType, item domain.QueueItem, at time.Time) domain.UserEvent {
	return domain.UserEvent{
		Type:    kind,
		UserID:  item.RequesterID,
		VenueID: item.VenueID,
		Item:    &item,
		At:      at,
	}
}

func auditEvent(kind domain.EventType, item domain.QueueItem, position int, at time.Time) domain.AuditEvent {
	return domain.AuditEvent{
		EventID:   uuid.NewString(),
		VenueID:   item.VenueID,
		ItemID:    item.ID,
		Type:      kind,
		Status:    item.Status,
		Lane:      item.Lane,
		TrackID:   item.ExternalTrackID,
		UserID:    item.RequesterID,
		Cost:      item.Cost,
		Position:  position,
		CreatedAt: at,
	}
}

package entity

import (
	"time"

	"encore/queue-gateway/internal/domain"
)

// QueueEvent is a row of the clickhouse audit table.
type QueueEvent struct {
	EventID    string
	VenueID    string
	ItemID     string
	Type       string
	Status     string
	Lane       string
	TrackID    string
	UserID     string
	Cost       int64
	Position   int
	CreatedAt  time.Time
	RecordedAt time.Time
}

func (QueueEvent) TableName() string {
	return "queue_events"
}

func NewQueueEvent(ev domain.AuditEvent, recordedAt time.Time) QueueEvent {
	return QueueEvent{
		EventID:    ev.EventID,
		VenueID:    ev.VenueID,
		ItemID:     ev.ItemID,
		Type:       string(ev.Type),
		Status:     string(ev.Status),
		Lane:       string(ev.Lane),
		TrackID:    ev.TrackID,
		UserID:     ev.UserID,
		Cost:       ev.Cost,
		Position:   ev.Position,
		CreatedAt:  ev.CreatedAt,
		RecordedAt: recordedAt,
	}
}

func (q QueueEvent) ToDomain() domain.AuditEvent {
	return domain.AuditEvent{
		EventID:   q.EventID,
		VenueID:   q.VenueID,
		ItemID:    q.ItemID,
		Type:      domain.EventType(q.Type),
		Status:    domain.Status(q.Status),
		Lane:      domain.Lane(q.Lane),
		TrackID:   q.TrackID,
		UserID:    q.UserID,
		Cost:      q.Cost,
		Position:  q.Position,
		CreatedAt: q.CreatedAt,
	}
}

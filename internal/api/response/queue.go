package response

import (
	"time"

	"encore/queue-gateway/internal/domain"
)

type QueueItem struct {
	ID              string    `json:"id"`
	VenueID         string    `json:"venueId"`
	SongID          string    `json:"songId"`
	ExternalTrackID string    `json:"externalTrackId"`
	Title           string    `json:"title"`
	Artist          string    `json:"artist"`
	RequesterID     string    `json:"requesterId"`
	RequesterName   string    `json:"requesterName"`
	Lane            string    `json:"lane"`
	Status          string    `json:"status"`
	Cost            int64     `json:"cost"`
	RequestedAt     time.Time `json:"requestedAt"`
	Notes           string    `json:"notes,omitempty"`
}

type Stats struct {
	PriorityCount int   `json:"priorityCount"`
	StandardCount int   `json:"standardCount"`
	Total         int   `json:"total"`
	PendingPoints int64 `json:"pendingPoints"`
	HasCurrent    bool  `json:"hasCurrent"`
}

type Queue struct {
	PriorityItems []QueueItem `json:"priorityItems"`
	StandardItems []QueueItem `json:"standardItems"`
	Current       *QueueItem  `json:"current"`
	Stats         Stats       `json:"stats"`
}

type AddSong struct {
	Item         QueueItem `json:"item"`
	Position     int       `json:"position"`
	LanePosition int       `json:"lanePosition"`
	Stats        Stats     `json:"stats"`
	NewBalance   int64     `json:"newBalance"`
}

type Advance struct {
	Previous *QueueItem `json:"previous"`
	Current  *QueueItem `json:"current"`
	Queue    *Queue     `json:"queue,omitempty"`
}

type Removal struct {
	Item       QueueItem `json:"item"`
	Refunded   int64     `json:"refunded"`
	NewBalance *int64    `json:"newBalance,omitempty"`
	Queue      *Queue    `json:"queue,omitempty"`
}

type Approval struct {
	Item  QueueItem `json:"item"`
	Queue *Queue    `json:"queue,omitempty"`
}

type Clear struct {
	Drained  int   `json:"drained"`
	Refunded int64 `json:"refunded"`
}

type AuditEvent struct {
	EventID   string    `json:"eventId"`
	ItemID    string    `json:"itemId"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	Lane      string    `json:"lane"`
	TrackID   string    `json:"trackId"`
	UserID    string    `json:"userId"`
	Cost      int64     `json:"cost"`
	Position  int       `json:"position,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type Meta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

type History struct {
	Data []AuditEvent `json:"data"`
	Meta Meta         `json:"meta"`
}

func NewQueueItem(item domain.QueueItem) QueueItem {
	return QueueItem{
		ID:              item.ID,
		VenueID:         item.VenueID,
		SongID:          item.SongID,
		ExternalTrackID: item.ExternalTrackID,
		Title:           item.Title,
		Artist:          item.Artist,
		RequesterID:     item.RequesterID,
		RequesterName:   item.RequesterName,
		Lane:            string(item.Lane),
		Status:          string(item.Status),
		Cost:            item.Cost,
		RequestedAt:     item.RequestedAt,
		Notes:           item.Notes,
	}
}

func newQueueItemPtr(item *domain.QueueItem) *QueueItem {
	if item == nil {
		return nil
	}
	out := NewQueueItem(*item)
	return &out
}

func newQueueItems(items []domain.QueueItem) []QueueItem {
	out := make([]QueueItem, 0, len(items))
	for _, item := range items {
		out = append(out, NewQueueItem(item))
	}
	return out
}

func NewStats(s domain.Stats) Stats {
	return Stats{
		PriorityCount: s.PriorityCount,
		StandardCount: s.StandardCount,
		Total:         s.Total,
		PendingPoints: s.PendingPoints,
		HasCurrent:    s.HasCurrent,
	}
}

// NewQueue returns nil for a nil snapshot.
func NewQueue(s *domain.Snapshot) *Queue {
	if s == nil {
		return nil
	}
	return &Queue{
		PriorityItems: newQueueItems(s.PriorityItems),
		StandardItems: newQueueItems(s.StandardItems),
		Current:       newQueueItemPtr(s.Current),
		Stats:         NewStats(s.Stats),
	}
}

func NewAdvance(previous, current *domain.QueueItem, s *domain.Snapshot) Advance {
	return Advance{
		Previous: newQueueItemPtr(previous),
		Current:  newQueueItemPtr(current),
		Queue:    NewQueue(s),
	}
}

func NewHistory(events []domain.AuditEvent, page, pageSize int, total int64) History {
	data := make([]AuditEvent, 0, len(events))
	for _, ev := range events {
		data = append(data, AuditEvent{
			EventID:   ev.EventID,
			ItemID:    ev.ItemID,
			Type:      string(ev.Type),
			Status:    string(ev.Status),
			Lane:      string(ev.Lane),
			TrackID:   ev.TrackID,
			UserID:    ev.UserID,
			Cost:      ev.Cost,
			Position:  ev.Position,
			CreatedAt: ev.CreatedAt,
		})
	}
	return History{
		Data: data,
		Meta: Meta{Page: page, PageSize: pageSize, Total: total},
	}
}

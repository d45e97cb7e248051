package domain

import "time"

// AuditEvent is one row of the append-only queue history.
type AuditEvent struct {
	EventID   string    `json:"event_id"`
	VenueID   string    `json:"venue_id"`
	ItemID    string    `json:"item_id"`
	Type      EventType `json:"type"`
	Status    Status    `json:"status"`
	Lane      Lane      `json:"lane"`
	TrackID   string    `json:"track_id"`
	UserID    string    `json:"user_id"`
	Cost      int64     `json:"cost"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

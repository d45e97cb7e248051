package domain

import "time"

type EventType string

const (
	EventSongAdded      EventType = "song_added"
	EventSongRemoved    EventType = "song_removed"
	EventQueueReordered EventType = "queue_reordered"
	EventQueueCleared   EventType = "queue_cleared"
	EventCurrentChanged EventType = "current_changed"
	// EventSnapshot is the first message on a new viewer connection
	EventSnapshot EventType = "snapshot"
)

// private events delivered to a single requester
const (
	EventRequestConfirmed EventType = "request_confirmed"
	EventRequestApproved  EventType = "request_approved"
	EventRequestRejected  EventType = "request_rejected"
	EventRequestWithdrawn EventType = "request_withdrawn"
	EventSongPlaying      EventType = "song_playing"
	EventSongPlayed       EventType = "song_played"
	EventSongSkipped      EventType = "song_skipped"
	EventPointsRefunded   EventType = "points_refunded"
)

type VenueEvent struct {
	Type     EventType  `json:"type"`
	VenueID  string     `json:"venue_id"`
	Snapshot *Snapshot  `json:"snapshot,omitempty"`
	Item     *QueueItem `json:"item,omitempty"`
	At       time.Time  `json:"at"`
}

type UserEvent struct {
	Type       EventType  `json:"type"`
	UserID     string     `json:"user_id"`
	VenueID    string     `json:"venue_id"`
	Item       *QueueItem `json:"item,omitempty"`
	Position   int        `json:"position,omitempty"`
	NewBalance *int64     `json:"new_balance,omitempty"`
	Refunded   int64      `json:"refunded,omitempty"`
	At         time.Time  `json:"at"`
}

// Mutation is what a committed queue operation hands to the publish step.
type Mutation struct {
	VenueEvent VenueEvent
	UserEvents []UserEvent
	Audit      []AuditEvent
}

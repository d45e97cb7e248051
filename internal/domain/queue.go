package domain

import "time"

type Lane string

const (
	LanePriority Lane = "priority"
	LaneStandard Lane = "standard"
)

func LaneFor(priority bool) Lane {
	if priority {
		return LanePriority
	}
	return LaneStandard
}

// QueueItem is the snapshot stored in a venue lane. Edits made after enqueue
// are not reflected in items already queued.
type QueueItem struct {
	ID              string    `json:"id"`
	VenueID         string    `json:"venue_id"`
	SongID          string    `json:"song_id"`
	ExternalTrackID string    `json:"external_track_id"`
	Title           string    `json:"title"`
	Artist          string    `json:"artist"`
	RequesterID     string    `json:"requester_id"`
	RequesterName   string    `json:"requester_name"`
	Lane            Lane      `json:"lane"`
	Status          Status    `json:"status"`
	Cost            int64     `json:"cost"`
	DebitTxID       string    `json:"debit_tx_id"`
	RequestedAt     time.Time `json:"requested_at"`
	Notes           string    `json:"notes,omitempty"`
}

// Position is the rank of an item at insertion time. Overall counts the whole
// priority lane ahead of standard items.
type Position struct {
	Lane    int `json:"lane"`
	Overall int `json:"overall"`
}

type Stats struct {
	PriorityCount int   `json:"priority_count"`
	StandardCount int   `json:"standard_count"`
	Total         int   `json:"total"`
	PendingPoints int64 `json:"pending_points"`
	HasCurrent    bool  `json:"has_current"`
}

type Snapshot struct {
	VenueID       string      `json:"venue_id"`
	PriorityItems []QueueItem `json:"priority_items"`
	StandardItems []QueueItem `json:"standard_items"`
	Current       *QueueItem  `json:"current"`
	Stats         Stats       `json:"stats"`
}

// Ordered returns the combined dispatch order: priority lane then standard lane.
func (s *Snapshot) Ordered() []QueueItem {
	out := make([]QueueItem, 0, len(s.PriorityItems)+len(s.StandardItems))
	out = append(out, s.PriorityItems...)
	return append(out, s.StandardItems...)
}

func (s *Snapshot) ComputeStats() {
	s.Stats = Stats{
		PriorityCount: len(s.PriorityItems),
		StandardCount: len(s.StandardItems),
		Total:         len(s.PriorityItems) + len(s.StandardItems),
		HasCurrent:    s.Current != nil,
	}
	for _, item := range s.Ordered() {
		s.Stats.PendingPoints += item.Cost
	}
}

// Promotion is the outcome of moving the dispatch head into the current slot.
type Promotion struct {
	Previous *QueueItem
	Current  *QueueItem
}

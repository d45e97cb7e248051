package request

import "encore/queue-gateway/internal/domain"

// AddQueueRequest is the body of POST /queue/add. Lane, when given, wins over
// the Priority flag.
type AddQueueRequest struct {
	VenueID  string `json:"venueId" binding:"required,max=64"`
	SongID   string `json:"songId" binding:"required,max=64"`
	Priority bool   `json:"priority"`
	Lane     string `json:"lane" binding:"omitempty,oneof=priority standard"`
	Notes    string `json:"notes" binding:"max=280"`
}

func (r AddQueueRequest) QueueLane() domain.Lane {
	if r.Lane != "" {
		return domain.Lane(r.Lane)
	}
	return domain.LaneFor(r.Priority)
}

package domain

import "time"

type Venue struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Active          bool      `json:"active"`
	StandardCost    int64     `json:"standard_cost"`
	PriorityCost    int64     `json:"priority_cost"`
	MaxQueueLength  int       `json:"max_queue_length"`
	RequireApproval bool      `json:"require_approval"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Cost returns the price of a request in the given lane.
func (v Venue) Cost(lane Lane) int64 {
	if lane == LanePriority {
		return v.PriorityCost
	}
	return v.StandardCost
}

type Song struct {
	ID              string    `json:"id"`
	VenueID         string    `json:"venue_id"`
	ExternalTrackID string    `json:"external_track_id"`
	Title           string    `json:"title"`
	Artist          string    `json:"artist"`
	DurationSeconds int       `json:"duration_seconds"`
	Available       bool      `json:"available"`
	CreatedAt       time.Time `json:"created_at"`
}

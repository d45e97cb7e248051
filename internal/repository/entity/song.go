package entity

import (
	"time"

	"encore/queue-gateway/internal/domain"
)

type Song struct {
	ID              string `gorm:"primary_key"`
	VenueID         string
	ExternalTrackID string
	Title           string
	Artist          string
	DurationSeconds int
	Available       bool
	CreatedAt       time.Time
}

func (Song) TableName() string {
	return "songs"
}

func (s Song) ToDomain() domain.Song {
	return domain.Song{
		ID:              s.ID,
		VenueID:         s.VenueID,
		ExternalTrackID: s.ExternalTrackID,
		Title:           s.Title,
		Artist:          s.Artist,
		DurationSeconds: s.DurationSeconds,
		Available:       s.Available,
		CreatedAt:       s.CreatedAt,
	}
}

package entity

import (
	"time"

	"encore/queue-gateway/internal/domain"
)

type Venue struct {
	ID              string `gorm:"primary_key"`
	Name            string
	Active          bool
	StandardCost    int64
	PriorityCost    int64
	MaxQueueLength  int
	RequireApproval bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (Venue) TableName() string {
	return "venues"
}

func (v Venue) ToDomain() domain.Venue {
	return domain.Venue{
		ID:              v.ID,
		Name:            v.Name,
		Active:          v.Active,
		StandardCost:    v.StandardCost,
		PriorityCost:    v.PriorityCost,
		MaxQueueLength:  v.MaxQueueLength,
		RequireApproval: v.RequireApproval,
		CreatedAt:       v.CreatedAt,
		UpdatedAt:       v.UpdatedAt,
	}
}

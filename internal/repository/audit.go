package repository

import (
	"context"
	"time"

	"encore/queue-gateway/internal/domain"
	"encore/queue-gateway/internal/repository/entity"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type auditRepository struct {
	clickhouse *gorm.DB
}

func NewAuditRepository(clickhouse *gorm.DB) *auditRepository {
	return &auditRepository{
		clickhouse: clickhouse,
	}
}

func (ar *auditRepository) InsertEvents(ctx context.Context, events []domain.AuditEvent) error {
	if len(events) == 0 {
		return nil
	}

	now := time.Now().UTC()
	rows := make([]entity.QueueEvent, 0, len(events))
	for _, ev := range events {
		rows = append(rows, entity.NewQueueEvent(ev, now))
	}

	if err := ar.clickhouse.WithContext(ctx).CreateInBatches(rows, 500).Error; err != nil {
		return errors.Wrap(err, "failed to insert queue events")
	}

	return nil
}

// GetVenueHistory pages through a venue's queue events, newest first.
func (ar *auditRepository) GetVenueHistory(ctx context.Context, venueID string, limit, offset int) ([]domain.AuditEvent, int64, error) {
	total, err := gorm.G[entity.QueueEvent](ar.clickhouse).
		Where("venue_id = ?", venueID).
		Count(ctx, "event_id")
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to count queue events")
	}

	rows, err := gorm.G[entity.QueueEvent](ar.clickhouse).
		Where("venue_id = ?", venueID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(ctx)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to get queue events")
	}

	events := make([]domain.AuditEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, row.ToDomain())
	}

	return events, total, nil
}

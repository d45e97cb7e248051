package repository

import (
	"context"
	"time"

	"encore/queue-gateway/internal/constant"
	"encore/queue-gateway/internal/domain"
	"encore/queue-gateway/internal/repository/entity"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type dlqRepository struct {
	db *gorm.DB
}

func NewDlqRepository(db *gorm.DB) *dlqRepository {
	return &dlqRepository{
		db: db,
	}
}

func (dr *dlqRepository) InsertDLQ(ctx context.Context, km domain.KafkaMessage) error {
	ctx, cancel := context.WithTimeout(ctx, constant.DBTxTimeout)
	defer cancel()

	err := gorm.G[entity.KafkaDlq](dr.db).Create(ctx, &entity.KafkaDlq{
		Topic:         km.Topic,
		Key:           km.Key,
		Payload:       km.Payload,
		AttemptCount:  km.Attempts,
		LastAttemptAt: time.Now(),
	})
	if err != nil {
		return errors.Wrap(err, "failed to insert dlq message")
	}

	return nil
}

// ListDLQ returns the oldest parked messages first.
func (dr *dlqRepository) ListDLQ(ctx context.Context, limit int) ([]domain.KafkaMessage, error) {
	rows, err := gorm.G[entity.KafkaDlq](dr.db).
		Order("id").
		Limit(limit).
		Find(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list dlq messages")
	}

	messages := make([]domain.KafkaMessage, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, row.ToDomain())
	}

	return messages, nil
}

func (dr *dlqRepository) DeleteDLQ(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, constant.DBTxTimeout)
	defer cancel()

	if _, err := gorm.G[entity.KafkaDlq](dr.db).Where("id = ?", id).Delete(ctx); err != nil {
		return errors.Wrapf(err, "failed to delete dlq message %d", id)
	}

	return nil
}

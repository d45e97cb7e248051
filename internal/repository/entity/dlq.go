package entity

import (
	"time"

	"encore/queue-gateway/internal/domain"
)

type KafkaDlq struct {
	ID            int64 `gorm:"primary_key"`
	Topic         string
	Key           string
	Payload       []byte
	AttemptCount  int
	LastAttemptAt time.Time
}

func (KafkaDlq) TableName() string {
	return "kafka_dlq"
}

func (k KafkaDlq) ToDomain() domain.KafkaMessage {
	return domain.KafkaMessage{
		Key:      k.Key,
		Payload:  k.Payload,
		Topic:    k.Topic,
		Attempts: k.AttemptCount,
		DlqID:    k.ID,
	}
}

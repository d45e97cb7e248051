package infra

import (
	"fmt"
	"time"

	"encore/queue-gateway/internal/config"
	"encore/queue-gateway/internal/constant"

	"github.com/segmentio/kafka-go"
)

// NewKafkaWriter keys messages by venue so a venue's events stay ordered
// within one partition.
func NewKafkaWriter(cfg config.Kafka) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           constant.KafkaProducerAcks,
		Async:                  false, // workers perform sync writes with timeout + retries
		BatchTimeout:           10 * time.Millisecond,
		BatchSize:              1024,
		AllowAutoTopicCreation: true,
	}
}

func NewKafkaConsumer(cfg config.Kafka) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		GroupID:        cfg.GroupID,
		Topic:          cfg.Topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		StartOffset:    kafka.FirstOffset,
	})
}

package audit

import (
	"context"
	"sync"
	"time"

	"encore/queue-gateway/internal/constant"
	"encore/queue-gateway/internal/domain"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

type auditService struct {
	kafkaWriter     kafkaWriter
	dlqRepository   dlqRepository
	auditRepository auditRepository
	logger          *logrus.Logger
	topic           string
	kafkaWorkChan   chan domain.KafkaMessage
	retryBackoff    time.Duration
	wg              sync.WaitGroup
	stopOnce        sync.Once

	// mu guards stopped against the close of kafkaWorkChan
	mu      sync.RWMutex
	stopped bool
}

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type dlqRepository interface {
	InsertDLQ(ctx context.Context, km domain.KafkaMessage) error
	ListDLQ(ctx context.Context, limit int) ([]domain.KafkaMessage, error)
	DeleteDLQ(ctx context.Context, id int64) error
}

type auditRepository interface {
	InsertEvents(ctx context.Context, events []domain.AuditEvent) error
	GetVenueHistory(ctx context.Context, venueID string, limit, offset int) ([]domain.AuditEvent, int64, error)
}

func NewAuditService(
	kafkaWriter kafkaWriter,
	dlqRepo dlqRepository,
	auditRepo auditRepository,
	topic string,
	logger *logrus.Logger,
) *auditService {
	return newAuditService(kafkaWriter, dlqRepo, auditRepo, topic, logger, constant.KafkaWorkerBufSize)
}

func newAuditService(
	kafkaWriter kafkaWriter,
	dlqRepo dlqRepository,
	auditRepo auditRepository,
	topic string,
	logger *logrus.Logger,
	buffer int,
) *auditService {
	return &auditService{
		kafkaWriter:     kafkaWriter,
		dlqRepository:   dlqRepo,
		auditRepository: auditRepo,
		logger:          logger,
		topic:           topic,
		kafkaWorkChan:   make(chan domain.KafkaMessage, buffer),
		retryBackoff:    constant.KafkaRetryBackoff,
	}
}

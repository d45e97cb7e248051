package queue

import (
	"context"

	"encore/queue-gateway/internal/domain"
	queueSvc "encore/queue-gateway/internal/service/queue"
)

type QueueHandler struct {
	queueService    queueService
	historyService  historyService
	historyPageSize int
}

type queueService interface {
	AddSong(ctx context.Context, p queueSvc.AddSongParams) (*queueSvc.AddResult, error)
	Snapshot(ctx context.Context, venueID string) (*domain.Snapshot, error)
	Next(ctx context.Context, venueID string) (*queueSvc.AdvanceResult, error)
	Skip(ctx context.Context, venueID, expectedItemID string) (*queueSvc.AdvanceResult, error)
	Approve(ctx context.Context, venueID, itemID string) (*queueSvc.ApproveResult, error)
	Withdraw(ctx context.Context, venueID, itemID, userID string) (*queueSvc.RemoveResult, error)
	Reject(ctx context.Context, venueID, itemID string) (*queueSvc.RemoveResult, error)
	Clear(ctx context.Context, venueID string) (*queueSvc.ClearResult, error)
}

type historyService interface {
	History(ctx context.Context, venueID string, limit, offset int) ([]domain.AuditEvent, int64, error)
}

func New(queueService queueService, historyService historyService, historyPageSize int) *QueueHandler {
	return &QueueHandler{
		queueService:    queueService,
		historyService:  historyService,
		historyPageSize: historyPageSize,
	}
}

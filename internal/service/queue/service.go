package queue

import (
	"context"

	"encore/queue-gateway/internal/domain"
)

type notifier interface {
	Notify(ctx context.Context, m domain.Mutation)
}

// queueService pairs the coordinator with the publish step: every mutation a
// coordinator call returns is handed to each notifier, in order, after the
// call committed.
type queueService struct {
	coordinator *Coordinator
	notifiers   []notifier
}

func NewQueueService(coordinator *Coordinator, notifiers ...notifier) *queueService {
	return &queueService{
		coordinator: coordinator,
		notifiers:   notifiers,
	}
}

func (s *queueService) publish(ctx context.Context, m domain.Mutation) {
	ctx = context.WithoutCancel(ctx)
	for _, n := range s.notifiers {
		n.Notify(ctx, m)
	}
}

func (s *queueService) AddSong(ctx context.Context, p AddSongParams) (*AddResult, error) {
	res, err := s.coordinator.AddSong(ctx, p)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, res.Mutation)
	return res, nil
}

func (s *queueService) Snapshot(ctx context.Context, venueID string) (*domain.Snapshot, error) {
	return s.coordinator.Snapshot(ctx, venueID)
}

func (s *queueService) Next(ctx context.Context, venueID string) (*AdvanceResult, error) {
	res, err := s.coordinator.Next(ctx, venueID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, res.Mutation)
	return res, nil
}

func (s *queueService) Skip(ctx context.Context, venueID, expectedItemID string) (*AdvanceResult, error) {
	res, err := s.coordinator.Skip(ctx, venueID, expectedItemID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, res.Mutation)
	return res, nil
}

func (s *queueService) Approve(ctx context.Context, venueID, itemID string) (*ApproveResult, error) {
	res, err := s.coordinator.Approve(ctx, venueID, itemID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, res.Mutation)
	return res, nil
}

// Withdraw, Reject and Clear may commit and still fail their refunds; the
// mutation is published whenever a result came back.
func (s *queueService) Withdraw(ctx context.Context, venueID, itemID, userID string) (*RemoveResult, error) {
	res, err := s.coordinator.Withdraw(ctx, venueID, itemID, userID)
	if res != nil {
		s.publish(ctx, res.Mutation)
	}
	return res, err
}

func (s *queueService) Reject(ctx context.Context, venueID, itemID string) (*RemoveResult, error) {
	res, err := s.coordinator.Reject(ctx, venueID, itemID)
	if res != nil {
		s.publish(ctx, res.Mutation)
	}
	return res, err
}

func (s *queueService) Clear(ctx context.Context, venueID string) (*ClearResult, error) {
	res, err := s.coordinator.Clear(ctx, venueID)
	if res != nil {
		s.publish(ctx, res.Mutation)
	}
	return res, err
}

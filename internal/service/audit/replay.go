package audit

import (
	"context"

	"encore/queue-gateway/internal/constant"

	"github.com/pkg/errors"
)

type ReplayResult struct {
	Replayed int
	Failed   int
}

// ReplayDLQ re-publishes parked messages oldest first, deleting each one once
// kafka accepted it. It stops at the first batch that makes no progress.
func (as *auditService) ReplayDLQ(ctx context.Context, batchSize int) (*ReplayResult, error) {
	if batchSize <= 0 {
		batchSize = constant.DlqReplayBatchSize
	}

	result := &ReplayResult{}
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		batch, err := as.dlqRepository.ListDLQ(ctx, batchSize)
		if err != nil {
			return result, err
		}
		if len(batch) == 0 {
			return result, nil
		}

		replayed := 0
		for _, km := range batch {
			if err := as.write(ctx, km); err != nil {
				result.Failed++
				as.logger.WithContext(ctx).Warnf("audit: replay of dlq message %d failed: %v", km.DlqID, err)
				continue
			}
			if err := as.dlqRepository.DeleteDLQ(ctx, km.DlqID); err != nil {
				return result, errors.Wrapf(err, "message %d was re-published but stays parked", km.DlqID)
			}
			replayed++
		}

		result.Replayed += replayed
		if replayed == 0 || len(batch) < batchSize {
			return result, nil
		}
	}
}

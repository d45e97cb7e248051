package audit

import (
	"context"

	"encore/queue-gateway/internal/domain"
)

func (as *auditService) History(ctx context.Context, venueID string, limit, offset int) ([]domain.AuditEvent, int64, error) {
	return as.auditRepository.GetVenueHistory(ctx, venueID, limit, offset)
}

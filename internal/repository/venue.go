package repository

import (
	"context"

	"encore/queue-gateway/internal/constant"
	"encore/queue-gateway/internal/domain"
	"encore/queue-gateway/internal/repository/entity"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type VenueRepository struct {
	db *gorm.DB
}

func NewVenueRepository(db *gorm.DB) *VenueRepository {
	return &VenueRepository{
		db: db,
	}
}

func (vr *VenueRepository) GetVenue(ctx context.Context, venueID string) (*domain.Venue, error) {
	ctx, cancel := context.WithTimeout(ctx, constant.DBTxTimeout)
	defer cancel()

	venue, err := gorm.G[entity.Venue](vr.db).Where("id = ?", venueID).First(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(constant.ErrNotFound, "venue %s", venueID)
		}
		return nil, errors.Wrap(err, "failed to get venue")
	}

	dVenue := venue.ToDomain()
	return &dVenue, nil
}

func (vr *VenueRepository) GetActiveVenues(ctx context.Context) ([]domain.Venue, error) {
	dbVenues, err := gorm.G[entity.Venue](vr.db).Where("active = ?", true).Find(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get active venues")
	}

	venues := make([]domain.Venue, 0, len(dbVenues))
	for _, venue := range dbVenues {
		venues = append(venues, venue.ToDomain())
	}

	return venues, nil
}

package repository

import (
	"context"

	"encore/queue-gateway/internal/constant"
	"encore/queue-gateway/internal/domain"
	"encore/queue-gateway/internal/repository/entity"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type SongRepository struct {
	db *gorm.DB
}

func NewSongRepository(db *gorm.DB) *SongRepository {
	return &SongRepository{
		db: db,
	}
}

// GetSong only finds songs listed in the given venue's catalog.
func (sr *SongRepository) GetSong(ctx context.Context, venueID, songID string) (*domain.Song, error) {
	ctx, cancel := context.WithTimeout(ctx, constant.DBTxTimeout)
	defer cancel()

	song, err := gorm.G[entity.Song](sr.db).
		Where("id = ? AND venue_id = ?", songID, venueID).
		First(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(constant.ErrNotFound, "song %s at venue %s", songID, venueID)
		}
		return nil, errors.Wrap(err, "failed to get song")
	}

	dSong := song.ToDomain()
	return &dSong, nil
}

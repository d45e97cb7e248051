package catalog

import (
	"context"
	"time"

	"encore/queue-gateway/internal/config"
	"encore/queue-gateway/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type catalogService struct {
	venueRepository venueRepository
	songRepository  songRepository
	redisClient     redis.UniversalClient
	defaults        config.Queue
	cacheTTL        time.Duration
	logger          *logrus.Logger
}

type venueRepository interface {
	GetVenue(ctx context.Context, venueID string) (*domain.Venue, error)
	GetActiveVenues(ctx context.Context) ([]domain.Venue, error)
}

type songRepository interface {
	GetSong(ctx context.Context, venueID, songID string) (*domain.Song, error)
}

func NewCatalogService(
	venueRepository venueRepository,
	songRepository songRepository,
	redisClient redis.UniversalClient,
	defaults config.Queue,
	logger *logrus.Logger,
) *catalogService {
	return &catalogService{
		venueRepository: venueRepository,
		songRepository:  songRepository,
		redisClient:     redisClient,
		defaults:        defaults,
		cacheTTL:        defaults.VenueCacheTTL,
		logger:          logger,
	}
}

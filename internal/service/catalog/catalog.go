package catalog

import (
	"context"
	"encoding/json"

	"encore/queue-gateway/internal/constant"
	"encore/queue-gateway/internal/domain"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// GetVenue resolves an active venue, reading through the redis cache. The
// cached copy is the raw row; defaults are applied on every read.
func (cs *catalogService) GetVenue(ctx context.Context, venueID string) (*domain.Venue, error) {
	venue, err := cs.cachedVenue(ctx, venueID)
	if err != nil {
		return nil, err
	}

	if venue == nil {
		venue, err = cs.venueRepository.GetVenue(ctx, venueID)
		if err != nil {
			return nil, err
		}
		cs.cacheVenue(ctx, *venue)
	}

	if !venue.Active {
		return nil, errors.Wrapf(constant.ErrNotFound, "venue %s is not active", venueID)
	}

	resolved := cs.withDefaults(*venue)
	return &resolved, nil
}

// GetSong resolves a song of the venue's catalog that can currently be requested.
func (cs *catalogService) GetSong(ctx context.Context, venueID, songID string) (*domain.Song, error) {
	song, err := cs.songRepository.GetSong(ctx, venueID, songID)
	if err != nil {
		return nil, err
	}

	if !song.Available {
		return nil, errors.Wrapf(constant.ErrNotFound, "song %s is not available", songID)
	}

	return song, nil
}

// WarmVenueCache loads every active venue into redis so the first requests of
// a fresh instance skip the database.
func (cs *catalogService) WarmVenueCache(ctx context.Context) (int, error) {
	venues, err := cs.venueRepository.GetActiveVenues(ctx)
	if err != nil {
		return 0, err
	}

	pipe := cs.redisClient.Pipeline()
	for _, venue := range venues {
		payload, err := json.Marshal(venue)
		if err != nil {
			return 0, errors.Wrap(err, "failed to marshal venue")
		}
		pipe.Set(ctx, venueKey(venue.ID), payload, cs.cacheTTL)
	}

	if len(venues) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return 0, errors.Wrap(err, "failed to execute venue cache pipeline")
		}
	}

	return len(venues), nil
}

// InvalidateVenue drops the cached copy after an out-of-band catalog change.
func (cs *catalogService) InvalidateVenue(ctx context.Context, venueID string) error {
	if err := cs.redisClient.Del(ctx, venueKey(venueID)).Err(); err != nil {
		return errors.Wrapf(err, "failed to invalidate venue %s", venueID)
	}
	return nil
}

// cachedVenue returns nil on a miss. A broken cache is logged and treated as a
// miss so the database stays the fallback.
func (cs *catalogService) cachedVenue(ctx context.Context, venueID string) (*domain.Venue, error) {
	raw, err := cs.redisClient.Get(ctx, venueKey(venueID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		cs.logger.WithContext(ctx).Warnf("catalog: venue cache read failed for %s: %v", venueID, err)
		return nil, nil
	}

	var venue domain.Venue
	if err := json.Unmarshal(raw, &venue); err != nil {
		cs.logger.WithContext(ctx).Warnf("catalog: dropping corrupt cache entry for venue %s: %v", venueID, err)
		return nil, nil
	}

	return &venue, nil
}

func (cs *catalogService) cacheVenue(ctx context.Context, venue domain.Venue) {
	payload, err := json.Marshal(venue)
	if err != nil {
		return
	}
	if err := cs.redisClient.Set(ctx, venueKey(venue.ID), payload, cs.cacheTTL).Err(); err != nil {
		cs.logger.WithContext(ctx).Warnf("catalog: venue cache write failed for %s: %v", venue.ID, err)
	}
}

func (cs *catalogService) withDefaults(venue domain.Venue) domain.Venue {
	if venue.StandardCost <= 0 {
		venue.StandardCost = cs.defaults.StandardCost
	}
	if venue.PriorityCost <= 0 {
		venue.PriorityCost = cs.defaults.PriorityCost
	}
	if venue.MaxQueueLength <= 0 {
		venue.MaxQueueLength = cs.defaults.MaxLength
	}
	return venue
}

func venueKey(venueID string) string {
	return constant.RedisVenuePrefix + venueID
}

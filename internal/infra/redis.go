package infra

import (
	"context"
	"fmt"

	"encore/queue-gateway/internal/config"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

func NewRedisClient(ctx context.Context, cfg config.Redis, logger *log.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.Database,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrapf(err, "failed to reach redis at %s:%d", cfg.Host, cfg.Port)
	}
	logger.Infof("redis is running on %s:%d on db %d", cfg.Host, cfg.Port, cfg.Database)

	return rdb, nil
}

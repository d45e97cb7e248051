package command

import (
	"context"
	"fmt"
	"sync"
	"time"

	"encore/queue-gateway/internal/api"
	"encore/queue-gateway/internal/api/handler/queue"
	"encore/queue-gateway/internal/api/handler/ws"
	"encore/queue-gateway/internal/api/middleware"
	"encore/queue-gateway/internal/broadcast"
	"encore/queue-gateway/internal/config"
	"encore/queue-gateway/internal/infra"
	"encore/queue-gateway/internal/ledger"
	queueStore "encore/queue-gateway/internal/queue"
	"encore/queue-gateway/internal/repository"
	auditService "encore/queue-gateway/internal/service/audit"
	catalogService "encore/queue-gateway/internal/service/catalog"
	queueService "encore/queue-gateway/internal/service/queue"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type Server struct {
	Logger *logrus.Logger
}

func (cmd Server) Command(ctx context.Context, cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "run the queue gateway HTTP and websocket server",
		Run: func(_ *cobra.Command, _ []string) {
			cmd.main(cfg, ctx)
		},
	}
}

func (cmd Server) main(cfg *config.Config, ctx context.Context) {
	db, err := infra.NewPostgresClient(ctx, cfg.Database.Postgres, cmd.Logger)
	if err != nil {
		cmd.Logger.WithContext(ctx).Fatal(errors.Wrap(err, "server : failed to connect to postgresql"))
		return
	}
	defer db.Close()

	clickhouse, err := infra.NewClickHouseClient(ctx, cfg.Database.ClickHouse, cmd.Logger)
	if err != nil {
		cmd.Logger.WithContext(ctx).Fatal(errors.Wrap(err, "server : failed to connect to clickhouse"))
		return
	}
	defer clickhouse.Close()

	redisClient, err := infra.NewRedisClient(ctx, cfg.Database.Redis, cmd.Logger)
	if err != nil {
		cmd.Logger.WithContext(ctx).Fatal(errors.Wrap(err, "server : failed to connect to redis"))
		return
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			cmd.Logger.WithContext(ctx).Error(errors.Wrap(err, "server : failed to close redis"))
		}
	}()

	kafkaWriter := infra.NewKafkaWriter(cfg.Kafka)
	defer kafkaWriter.Close()

	// repositories
	venueRepository := repository.NewVenueRepository(db.GetDb())
	songRepository := repository.NewSongRepository(db.GetDb())
	dlqRepository := repository.NewDlqRepository(db.GetDb())
	auditRepository := repository.NewAuditRepository(clickhouse.GetDb())

	// services
	catalog := catalogService.NewCatalogService(venueRepository, songRepository, redisClient, cfg.Queue, cmd.Logger)
	if warmed, err := catalog.WarmVenueCache(ctx); err != nil {
		cmd.Logger.WithContext(ctx).Warnf("server : venue cache warm-up failed: %v", err)
	} else {
		cmd.Logger.WithContext(ctx).Infof("server : cached %d active venues", warmed)
	}

	coordinator := queueService.NewCoordinator(
		catalog,
		cmd.ledger(cfg.Ledger),
		queueStore.NewRedisStore(redisClient, cmd.Logger),
		queueService.Options{
			LedgerTimeout:    cfg.Ledger.Timeout,
			ReconcileTimeout: cfg.Ledger.ReconcileTimeout,
		},
		cmd.Logger,
	)

	broadcaster := broadcast.NewBroadcaster(
		broadcast.NewHub(cmd.Logger),
		cmd.relay(cfg.Broadcast, redisClient),
		cfg.Broadcast.ChannelPrefix,
		broadcast.ClientOptions{
			SendBuffer:   cfg.Broadcast.SendBuffer,
			WriteTimeout: cfg.Broadcast.WriteTimeout,
			PingInterval: cfg.Broadcast.PingInterval,
		},
		cmd.Logger,
	)

	audit := auditService.NewAuditService(kafkaWriter, dlqRepository, auditRepository, cfg.Kafka.Topic, cmd.Logger)
	audit.Start(cfg.WorkerCount)

	queueServiceInstance := queueService.NewQueueService(coordinator, broadcaster, audit)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := broadcaster.Run(ctx); err != nil {
			cmd.Logger.WithContext(ctx).Errorf("server : broadcaster stopped: %v", err)
		}
	}()

	stopCleanup := make(chan struct{})
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, cmd.Logger)
	rateLimiter.StartCleanup(10*time.Minute, stopCleanup)

	server := api.New(cfg.AppEnv, cmd.Logger)
	server.RegisterRoutes(api.Handlers{
		Queue:       queue.New(queueServiceInstance, audit, cfg.Queue.HistoryPageSize),
		Ws:          ws.New(queueServiceInstance, broadcaster, cmd.Logger),
		RateLimiter: rateLimiter,
	})

	err = server.Serve(ctx, fmt.Sprintf(":%d", cfg.HTTP.Port), cfg.HTTP.ShutdownTimeout)

	// handlers still running past the shutdown timeout park their audit rows in the DLQ
	close(stopCleanup)
	audit.Stop()
	wg.Wait()

	if err != nil {
		cmd.Logger.Fatal(err)
	}
}

func (cmd Server) ledger(cfg config.Ledger) queueService.PointsLedger {
	if cfg.Mode == config.LedgerModeStub {
		cmd.Logger.Warnf("server : using the in-memory ledger, every balance starts at %d", cfg.StubInitialBalance)
		return ledger.NewStubLedger(cfg.StubInitialBalance)
	}
	return ledger.NewHTTPClient(ledger.HTTPClientConfig{BaseURL: cfg.BaseURL, Timeout: cfg.Timeout}, cmd.Logger)
}

func (cmd Server) relay(cfg config.Broadcast, redisClient redis.UniversalClient) broadcast.Relay {
	if cfg.Relay == config.RelayLocal {
		return broadcast.NewLocalRelay()
	}
	return broadcast.NewRedisRelay(redisClient, cfg.ChannelPrefix, cmd.Logger)
}

package command

import (
	"context"

	"encore/queue-gateway/internal/config"
	"encore/queue-gateway/internal/infra"
	"encore/queue-gateway/internal/repository"
	auditService "encore/queue-gateway/internal/service/audit"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type AuditConsumerCommand struct {
	Logger *log.Logger
}

func (cmd AuditConsumerCommand) Command(ctx context.Context, cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "consume-audit",
		Short: "consume queue events from Kafka and store them in ClickHouse",
		Run: func(_ *cobra.Command, _ []string) {
			cmd.main(cfg, ctx)
		},
	}
}

func (cmd AuditConsumerCommand) main(cfg *config.Config, ctx context.Context) {
	clickhouse, err := infra.NewClickHouseClient(ctx, cfg.Database.ClickHouse, cmd.Logger)
	if err != nil {
		cmd.Logger.WithContext(ctx).Fatalf("failed to initialize ClickHouse client: %v", err)
	}
	defer clickhouse.Close()

	reader := infra.NewKafkaConsumer(cfg.Kafka)
	defer func() {
		if err := reader.Close(); err != nil {
			cmd.Logger.WithContext(ctx).Errorf("failed to close Kafka consumer: %v", err)
		}
	}()

	numConsumers := cfg.WorkerCount
	if numConsumers == 0 {
		numConsumers = 4
	}

	consumer := auditService.NewConsumer(reader, repository.NewAuditRepository(clickhouse.GetDb()), cmd.Logger)
	cmd.Logger.WithContext(ctx).Infof("consuming %s with %d readers", cfg.Kafka.Topic, numConsumers)

	consumer.Run(ctx, numConsumers, numConsumers)
}

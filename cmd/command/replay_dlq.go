package command

import (
	"context"

	"encore/queue-gateway/internal/config"
	"encore/queue-gateway/internal/infra"
	"encore/queue-gateway/internal/repository"
	auditService "encore/queue-gateway/internal/service/audit"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type ReplayDlqCommand struct {
	Logger *log.Logger
}

func (cmd ReplayDlqCommand) Command(ctx context.Context, cfg *config.Config) *cobra.Command {
	var batchSize int

	c := &cobra.Command{
		Use:   "replay-dlq",
		Short: "re-publish parked queue events from the kafka_dlq table",
		Run: func(_ *cobra.Command, _ []string) {
			cmd.main(cfg, ctx, batchSize)
		},
	}
	c.Flags().IntVar(&batchSize, "batch-size", 0, "rows loaded per round (0 uses the default)")

	return c
}

func (cmd ReplayDlqCommand) main(cfg *config.Config, ctx context.Context, batchSize int) {
	db, err := infra.NewPostgresClient(ctx, cfg.Database.Postgres, cmd.Logger)
	if err != nil {
		cmd.Logger.WithContext(ctx).Fatal(errors.Wrap(err, "replay-dlq : failed to connect to postgresql"))
		return
	}
	defer db.Close()

	writer := infra.NewKafkaWriter(cfg.Kafka)
	defer writer.Close()

	audit := auditService.NewAuditService(writer, repository.NewDlqRepository(db.GetDb()), nil, cfg.Kafka.Topic, cmd.Logger)

	res, err := audit.ReplayDLQ(ctx, batchSize)
	if res != nil {
		cmd.Logger.WithContext(ctx).Infof("replay-dlq : %d messages re-published, %d failed", res.Replayed, res.Failed)
	}
	if err != nil {
		cmd.Logger.WithContext(ctx).Fatal(errors.Wrap(err, "replay-dlq : stopped"))
	}
}
